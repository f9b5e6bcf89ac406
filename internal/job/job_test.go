package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/nettrain/internal/train"
)

const lineYAML = `
layers: [1, 1]
input: [[0], [1], [2], [3]]
target: [[-1], [1], [3], [5]]
algorithm: bfgs
epochs: 100
goal: 1.0e-8
show: 0
seed: 7
`

func TestParseYAML(t *testing.T) {
	j, err := Parse([]byte(lineYAML))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, j.Layers)
	assert.Len(t, j.Input, 4)
	assert.Equal(t, "bfgs", j.Algorithm)
	assert.Equal(t, 100, j.Epochs)
	require.NotNil(t, j.Goal)
	assert.Equal(t, 1e-8, *j.Goal)
	require.NotNil(t, j.Show)
	assert.Equal(t, 0, *j.Show)
	assert.Equal(t, uint64(7), j.Seed)
	assert.NoError(t, j.Validate())
}

func TestParseJSONWithOptions(t *testing.T) {
	j, err := Parse([]byte(`{"layers":[2,2,1],"input":[[0,0]],"target":[[0]],"algorithm":"ga","options":{"init":"uniform","ngen":20}}`))
	require.NoError(t, err)

	v, ok := j.Options.String(train.KeyInit)
	assert.True(t, ok)
	assert.Equal(t, "uniform", v)
	n, ok := j.Options.Int(train.KeyNGen)
	assert.True(t, ok)
	assert.Equal(t, 20, n)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("layers: [1, 1]\nlearning_rate: 0.1\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lineYAML), 0o600))

	j, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, j.Layers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Job {
		return &Job{
			Layers: []int{2, 3, 1},
			Input:  [][]float64{{0, 1}, {1, 0}},
			Target: [][]float64{{1}, {1}},
		}
	}
	neg := -1

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr error
	}{
		{name: "valid", mutate: func(*Job) {}},
		{name: "one layer", mutate: func(j *Job) { j.Layers = []int{2} }, wantErr: ErrInvalid},
		{name: "zero layer", mutate: func(j *Job) { j.Layers = []int{2, 0, 1} }, wantErr: ErrInvalid},
		{name: "no samples", mutate: func(j *Job) { j.Input, j.Target = nil, nil }, wantErr: ErrInvalid},
		{name: "count mismatch", mutate: func(j *Job) { j.Target = j.Target[:1] }, wantErr: ErrInvalid},
		{name: "input width", mutate: func(j *Job) { j.Input[1] = []float64{1} }, wantErr: ErrInvalid},
		{name: "target width", mutate: func(j *Job) { j.Target[0] = []float64{1, 2} }, wantErr: ErrInvalid},
		{name: "negative epochs", mutate: func(j *Job) { j.Epochs = -3 }, wantErr: ErrInvalid},
		{name: "negative show", mutate: func(j *Job) { j.Show = &neg }, wantErr: ErrInvalid},
		{name: "unknown algorithm", mutate: func(j *Job) { j.Algorithm = "sgd" }, wantErr: train.ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := valid()
			tt.mutate(j)
			err := j.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	show := 5
	j := &Job{Show: &show}
	j.ApplyDefaults(Defaults{Algorithm: "cg", Epochs: 50, Show: 100, Goal: 0.5, Strict: true, Seed: 9})

	assert.Equal(t, "cg", j.Algorithm)
	assert.Equal(t, 50, j.Epochs)
	assert.Equal(t, 5, *j.Show)
	assert.Equal(t, 0.5, *j.Goal)
	assert.True(t, j.Strict)
	assert.Equal(t, uint64(9), j.Seed)
}

func TestRunFitsLine(t *testing.T) {
	j, err := Parse([]byte(lineYAML))
	require.NoError(t, err)

	out, err := j.Run(context.Background(), zap.NewNop())
	require.NoError(t, err)

	assert.Less(t, out.Result.Error, 1e-4)
	assert.Equal(t, "bfgs", out.Result.Algorithm)
	params := out.Network.Parameters()
	require.Len(t, params, 2)
	assert.InDelta(t, 2.0, params[0], 1e-2)
	assert.InDelta(t, -1.0, params[1], 1e-2)
}

func TestRunStrictConflict(t *testing.T) {
	j, err := Parse([]byte(lineYAML))
	require.NoError(t, err)
	j.Strict = true
	j.Options = train.Config{train.KeyMaxIter: 5}

	_, err = j.Run(context.Background(), zap.NewNop())
	assert.ErrorIs(t, err, train.ErrConfigurationConflict)
}

func TestRunInvalid(t *testing.T) {
	_, err := (&Job{Layers: []int{1}}).Run(context.Background(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalid)
}
