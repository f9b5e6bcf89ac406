package train

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapterRequiresCollaborators(t *testing.T) {
	tests := []struct {
		name string
		net  Network
		eval Evaluator
		hook EpochFunc
		ds   Dataset
		want error
	}{
		{name: "nil network", eval: &quadratic{}, hook: nopHook, ds: oneSample, want: ErrMissingCollaborator},
		{name: "nil evaluator", net: newVecNet(0), hook: nopHook, ds: oneSample, want: ErrMissingCollaborator},
		{name: "nil hook", net: newVecNet(0), eval: &quadratic{}, ds: oneSample, want: ErrMissingCollaborator},
		{name: "empty dataset", net: newVecNet(0), eval: &quadratic{}, hook: nopHook, want: ErrShapeMismatch},
		{
			name: "unpaired dataset",
			net:  newVecNet(0),
			eval: &quadratic{},
			hook: nopHook,
			ds:   Dataset{Input: [][]float64{{0}, {1}}, Target: [][]float64{{0}}},
			want: ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.net, tt.ds, tt.eval, tt.hook)
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestObjectiveWritesThrough(t *testing.T) {
	net := newVecNet(0, 0, 0)
	q := &quadratic{}
	a, err := NewAdapter(net, oneSample, q, nopHook)
	require.NoError(t, err)

	x := []float64{1.5, -2, 3}
	e, err := a.Objective(x)
	require.NoError(t, err)

	if diff := cmp.Diff(x, net.Parameters()); diff != "" {
		t.Fatalf("network parameters differ from objective input (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2.25+50.0+625.0, e)
	assert.Equal(t, e, a.LastError())

	// The vector passed in is copied, not retained.
	x[0] = 100
	assert.Equal(t, 1.5, net.Parameters()[0])
}

func TestGradientWritesThroughAndRecordsError(t *testing.T) {
	net := newVecNet(0, 0)
	a, err := NewAdapter(net, oneSample, &quadratic{}, nopHook)
	require.NoError(t, err)

	g, err := a.Gradient([]float64{4, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -40}, g)
	assert.Equal(t, []float64{4, 1}, net.Parameters())
	assert.Equal(t, 25.0, a.LastError())
}

func TestShapeMismatch(t *testing.T) {
	q := &quadratic{}
	a, err := NewAdapter(newVecNet(0), oneSample, q, nopHook)
	require.NoError(t, err)

	_, err = a.Objective([]float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = a.Gradient(nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	assert.Zero(t, q.calls, "evaluator must not run on a mismatched vector")
}

func TestOnIterateReportsMostRecentError(t *testing.T) {
	var got []float64
	hook := func(lastErr float64, _ Network, _, _ [][]float64) error {
		got = append(got, lastErr)
		return nil
	}
	a, err := NewAdapter(newVecNet(0), oneSample, &quadratic{}, hook)
	require.NoError(t, err)

	require.NoError(t, a.OnIterate(nil))

	_, err = a.Objective([]float64{1})
	require.NoError(t, err)
	require.NoError(t, a.OnIterate([]float64{1}))

	_, err = a.Gradient([]float64{5})
	require.NoError(t, err)
	require.NoError(t, a.OnIterate([]float64{5}))

	assert.Equal(t, []float64{initialError, 4, 4}, got)
}

func TestOnIterateReturnsHookError(t *testing.T) {
	stop := errors.New("stop now")
	hook := func(float64, Network, [][]float64, [][]float64) error { return stop }
	a, err := NewAdapter(newVecNet(0), oneSample, &quadratic{}, hook)
	require.NoError(t, err)

	assert.Same(t, stop, a.OnIterate(nil))
}

func TestBaseRunNotImplemented(t *testing.T) {
	a, err := NewAdapter(newVecNet(0), oneSample, &quadratic{}, nopHook)
	require.NoError(t, err)

	assert.ErrorIs(t, a.Run(context.Background()), ErrNotImplemented)
}
