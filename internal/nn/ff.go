// Package nn provides a feed-forward multi-layer perceptron whose weights
// and biases all live in one flat parameter slice, so the slice can be handed
// to an optimizer as a write-through view.
package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Layer is one fully connected layer. W and B are views into the owning
// network's parameter slice.
type Layer struct {
	W *mat.Dense    // outputs x inputs
	B *mat.VecDense // outputs
	// Linear marks an identity transfer function; otherwise tanh.
	Linear bool
}

// FF is a feed-forward network with tanh hidden layers and a linear output
// layer.
type FF struct {
	sizes  []int
	params []float64
	layers []Layer
}

// NewFF builds a network with the given layer sizes, input first. Weights
// are drawn uniformly from [-0.5, 0.5) using seed.
func NewFF(sizes []int, seed uint64) (*FF, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("nn: need at least input and output sizes, got %v", sizes)
	}
	n := 0
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("nn: layer %d has size %d", i, s)
		}
		if i > 0 {
			n += s*sizes[i-1] + s
		}
	}

	net := &FF{
		sizes:  append([]int(nil), sizes...),
		params: make([]float64, n),
	}
	net.layers = viewLayers(net.sizes, net.params)

	rng := rand.New(rand.NewPCG(seed, seed+1))
	for i := range net.params {
		net.params[i] = rng.Float64() - 0.5
	}
	return net, nil
}

// viewLayers slices buf into per-layer matrix and vector views, in the order
// W1, b1, W2, b2, ...
func viewLayers(sizes []int, buf []float64) []Layer {
	layers := make([]Layer, len(sizes)-1)
	off := 0
	for i := range layers {
		in, out := sizes[i], sizes[i+1]
		layers[i].W = mat.NewDense(out, in, buf[off:off+out*in])
		off += out * in
		layers[i].B = mat.NewVecDense(out, buf[off:off+out])
		off += out
		layers[i].Linear = i == len(layers)-1
	}
	return layers
}

// Parameters returns the flat parameter slice. Writes are visible to the
// next Sim call.
func (n *FF) Parameters() []float64 { return n.params }

// NumParameters returns the number of weights and biases.
func (n *FF) NumParameters() int { return len(n.params) }

// Sizes returns the layer sizes, input first.
func (n *FF) Sizes() []int { return append([]int(nil), n.sizes...) }

// Inputs returns the input dimension.
func (n *FF) Inputs() int { return n.sizes[0] }

// Outputs returns the output dimension.
func (n *FF) Outputs() int { return n.sizes[len(n.sizes)-1] }

// Layers returns the layer views.
func (n *FF) Layers() []Layer { return n.layers }

// Step computes the network output for one input vector.
func (n *FF) Step(input []float64) ([]float64, error) {
	acts, err := n.forward(input)
	if err != nil {
		return nil, err
	}
	out := acts[len(acts)-1]
	return append([]float64(nil), out.RawVector().Data...), nil
}

// Sim computes the network output for every input vector.
func (n *FF) Sim(inputs [][]float64) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		y, err := n.Step(in)
		if err != nil {
			return nil, fmt.Errorf("nn: sample %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}

// forward returns the activations of every layer, the input included.
func (n *FF) forward(input []float64) ([]*mat.VecDense, error) {
	if len(input) != n.Inputs() {
		return nil, fmt.Errorf("nn: input has %d values, network expects %d", len(input), n.Inputs())
	}
	acts := make([]*mat.VecDense, 0, len(n.layers)+1)
	a := mat.NewVecDense(len(input), append([]float64(nil), input...))
	acts = append(acts, a)
	for _, l := range n.layers {
		r, _ := l.W.Dims()
		z := mat.NewVecDense(r, nil)
		z.MulVec(l.W, a)
		z.AddVec(z, l.B)
		if !l.Linear {
			data := z.RawVector().Data
			for i := range data {
				data[i] = math.Tanh(data[i])
			}
		}
		acts = append(acts, z)
		a = z
	}
	return acts, nil
}
