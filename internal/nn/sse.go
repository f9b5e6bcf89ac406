package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/nettrain/internal/train"
)

// SSE is the half sum of squared errors, 0.5 * sum((target - output)^2),
// over every output of every sample. It evaluates *FF networks.
type SSE struct{}

var _ train.Evaluator = SSE{}

func asFF(net train.Network) (*FF, error) {
	ff, ok := net.(*FF)
	if !ok {
		return nil, fmt.Errorf("nn: SSE evaluates *nn.FF, got %T", net)
	}
	return ff, nil
}

func checkPairs(input, target [][]float64) error {
	if len(input) != len(target) {
		return fmt.Errorf("%w: %d inputs but %d targets", train.ErrShapeMismatch, len(input), len(target))
	}
	return nil
}

func checkTarget(ff *FF, i int, target []float64) error {
	if len(target) != ff.Outputs() {
		return fmt.Errorf("%w: target %d has %d values, network has %d outputs", train.ErrShapeMismatch, i, len(target), ff.Outputs())
	}
	return nil
}

// Error returns the training error at the network's current parameters.
func (SSE) Error(net train.Network, input, target [][]float64) (float64, error) {
	ff, err := asFF(net)
	if err != nil {
		return 0, err
	}
	if err := checkPairs(input, target); err != nil {
		return 0, err
	}
	total := 0.0
	for i, in := range input {
		if err := checkTarget(ff, i, target[i]); err != nil {
			return 0, err
		}
		y, err := ff.Step(in)
		if err != nil {
			return 0, err
		}
		for j, v := range y {
			d := target[i][j] - v
			total += d * d
		}
	}
	return 0.5 * total, nil
}

// Grad returns the error and its gradient by backpropagation. The gradient
// follows the layout of Parameters.
func (SSE) Grad(net train.Network, input, target [][]float64) (float64, []float64, error) {
	ff, err := asFF(net)
	if err != nil {
		return 0, nil, err
	}
	if err := checkPairs(input, target); err != nil {
		return 0, nil, err
	}
	grad := make([]float64, ff.NumParameters())
	gl := viewLayers(ff.sizes, grad)

	total := 0.0
	for i, in := range input {
		if err := checkTarget(ff, i, target[i]); err != nil {
			return 0, nil, err
		}
		acts, err := ff.forward(in)
		if err != nil {
			return 0, nil, err
		}

		out := acts[len(acts)-1]
		delta := mat.NewVecDense(out.Len(), nil)
		for j := 0; j < out.Len(); j++ {
			d := out.AtVec(j) - target[i][j]
			total += d * d
			delta.SetVec(j, d)
		}

		for l := len(ff.layers) - 1; l >= 0; l-- {
			layer := ff.layers[l]
			if !layer.Linear {
				a := acts[l+1]
				for j := 0; j < delta.Len(); j++ {
					v := a.AtVec(j)
					delta.SetVec(j, delta.AtVec(j)*(1-v*v))
				}
			}
			gl[l].W.RankOne(gl[l].W, 1, delta, acts[l])
			gl[l].B.AddVec(gl[l].B, delta)

			if l > 0 {
				_, c := layer.W.Dims()
				prev := mat.NewVecDense(c, nil)
				prev.MulVec(layer.W.T(), delta)
				delta = prev
			}
		}
	}
	return 0.5 * total, grad, nil
}
