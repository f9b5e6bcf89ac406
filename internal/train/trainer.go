package train

import (
	"context"
	"fmt"
)

// Algorithm names accepted by New.
const (
	AlgorithmBFGS         = "bfgs"
	AlgorithmCG           = "cg"
	AlgorithmNewtonCG     = "ncg"
	AlgorithmHillClimb    = "rhc"
	AlgorithmBasinHopping = "bh"
	AlgorithmGenetic      = "ga"
)

// Trainer runs one training invocation. On success the network's parameters
// equal the routine's final vector. On failure they hold whatever was last
// written through the alias.
type Trainer interface {
	Name() string
	Run(ctx context.Context) error
}

var (
	_ Trainer = (*Adapter)(nil)
	_ Trainer = (*BFGS)(nil)
	_ Trainer = (*CG)(nil)
	_ Trainer = (*NewtonCG)(nil)
	_ Trainer = (*HillClimb)(nil)
	_ Trainer = (*BasinHopping)(nil)
	_ Trainer = (*Genetic)(nil)
)

// Algorithms lists the names New accepts.
func Algorithms() []string {
	return []string{
		AlgorithmBFGS,
		AlgorithmCG,
		AlgorithmNewtonCG,
		AlgorithmHillClimb,
		AlgorithmBasinHopping,
		AlgorithmGenetic,
	}
}

// New returns the trainer for the named algorithm.
func New(name string, net Network, ds Dataset, eval Evaluator, epochf EpochFunc, opts ...Option) (Trainer, error) {
	a, err := NewAdapter(net, ds, eval, epochf, opts...)
	if err != nil {
		return nil, err
	}
	switch name {
	case AlgorithmBFGS:
		return &BFGS{a}, nil
	case AlgorithmCG:
		return &CG{a}, nil
	case AlgorithmNewtonCG:
		return &NewtonCG{a}, nil
	case AlgorithmHillClimb:
		return &HillClimb{a}, nil
	case AlgorithmBasinHopping:
		return &BasinHopping{a}, nil
	case AlgorithmGenetic:
		return &Genetic{a}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}
