package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFFValidatesSizes(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
	}{
		{name: "single layer", sizes: []int{3}},
		{name: "zero width", sizes: []int{2, 0, 1}},
		{name: "negative", sizes: []int{-1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFF(tt.sizes, 1)
			assert.Error(t, err)
		})
	}
}

func TestParameterCount(t *testing.T) {
	net, err := NewFF([]int{2, 3, 1}, 1)
	require.NoError(t, err)

	// 2*3 + 3 + 3*1 + 1
	assert.Equal(t, 13, net.NumParameters())
	assert.Len(t, net.Parameters(), 13)
	assert.Equal(t, 2, net.Inputs())
	assert.Equal(t, 1, net.Outputs())
}

func TestParametersAreWriteThrough(t *testing.T) {
	net, err := NewFF([]int{1, 1}, 1)
	require.NoError(t, err)

	p := net.Parameters()
	p[0], p[1] = 2, -1 // w, b

	y, err := net.Step([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, y)

	assert.Equal(t, 2.0, net.Layers()[0].W.At(0, 0))
	assert.Equal(t, -1.0, net.Layers()[0].B.AtVec(0))
}

func TestHiddenLayerUsesTanh(t *testing.T) {
	net, err := NewFF([]int{1, 1, 1}, 1)
	require.NoError(t, err)
	copy(net.Parameters(), []float64{1, 0, 1, 0})

	y, err := net.Step([]float64{0.5})
	require.NoError(t, err)
	assert.InDelta(t, math.Tanh(0.5), y[0], 1e-12)
}

func TestStepRejectsWrongInput(t *testing.T) {
	net, err := NewFF([]int{2, 1}, 1)
	require.NoError(t, err)

	_, err = net.Step([]float64{1})
	assert.Error(t, err)

	_, err = net.Sim([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestSeedIsDeterministic(t *testing.T) {
	a, err := NewFF([]int{2, 4, 2}, 42)
	require.NoError(t, err)
	b, err := NewFF([]int{2, 4, 2}, 42)
	require.NoError(t, err)

	assert.Equal(t, a.Parameters(), b.Parameters())
	for _, v := range a.Parameters() {
		assert.GreaterOrEqual(t, v, -0.5)
		assert.Less(t, v, 0.5)
	}
}
