package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/nettrain/internal/train"
)

const lineJob = `
layers: [1, 1]
input: [[0], [1], [2], [3]]
target: [[-1], [1], [3], [5]]
goal: 1.0e-8
show: 0
`

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunTrainsAndWritesParameters(t *testing.T) {
	out := filepath.Join(t.TempDir(), "params.json")
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-f", writeJob(t, lineJob), "-a", "bfgs", "-e", "200", "-o", out}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "algorithm:  bfgs")
	assert.Contains(t, stdout.String(), "stopped:")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved struct {
		Layers     []int     `json:"layers"`
		Parameters []float64 `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []int{1, 1}, saved.Layers)
	require.Len(t, saved.Parameters, 2)
	assert.InDelta(t, 2.0, saved.Parameters[0], 1e-2)
	assert.InDelta(t, -1.0, saved.Parameters[1], 1e-2)
}

func TestRunRequiresJobFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), nil, &stdout, &stderr)
	assert.ErrorContains(t, err, "job file")
}

func TestRunStrictConflict(t *testing.T) {
	job := lineJob + "options:\n  maxiter: 3\n"
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-f", writeJob(t, job), "-a", "bfgs", "-e", "50", "--strict"}, &stdout, &stderr)
	assert.ErrorIs(t, err, train.ErrConfigurationConflict)
}

func TestRunUnknownAlgorithm(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-f", writeJob(t, lineJob), "-a", "sgd"}, &stdout, &stderr)
	assert.ErrorIs(t, err, train.ErrUnknownAlgorithm)
}
