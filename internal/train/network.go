// Package train adapts general-purpose numerical optimizers to neural
// network training.
//
// Every adapter exposes a network's trainable parameters as one flat vector,
// evaluates the training error and its gradient against that vector, and
// forwards the optimizer's per-iteration callbacks to an epoch hook. The
// vector the optimizer works on is written straight through to the network,
// so the network always computes with the most recently written candidate.
package train

import "fmt"

// Network is a trainable model whose parameters can be viewed as one
// contiguous vector.
type Network interface {
	// Parameters returns a write-through view over every trainable scalar.
	// Writes to the returned slice must be visible to the network's next
	// computation. The order is fixed for the network's lifetime.
	Parameters() []float64

	// NumParameters returns the number of trainable scalars.
	NumParameters() int
}

// Evaluator computes the training error of a network and its gradient with
// respect to the flattened parameter vector, using the network's current
// parameters.
type Evaluator interface {
	Error(net Network, input, target [][]float64) (float64, error)
	Grad(net Network, input, target [][]float64) (float64, []float64, error)
}

// EpochFunc is the epoch-reporting hook. It is invoked once per optimizer
// iteration with the last computed error. A returned error stops the run and
// reaches the caller unchanged.
type EpochFunc func(lastErr float64, net Network, input, target [][]float64) error

// Dataset pairs input vectors with target vectors.
type Dataset struct {
	Input  [][]float64
	Target [][]float64
}

// Validate checks that inputs and targets pair up.
func (d Dataset) Validate() error {
	if len(d.Input) == 0 {
		return fmt.Errorf("%w: empty training set", ErrShapeMismatch)
	}
	if len(d.Input) != len(d.Target) {
		return fmt.Errorf("%w: %d inputs but %d targets", ErrShapeMismatch, len(d.Input), len(d.Target))
	}
	return nil
}
