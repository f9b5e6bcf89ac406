package train

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// initialError is reported by the epoch hook if it runs before any
// objective evaluation.
const initialError = 1e10

// Adapter binds a network and a training set to an optimizer's calling
// convention. It is the shared base of every training algorithm; on its own
// it cannot run.
type Adapter struct {
	net    Network
	input  [][]float64
	target [][]float64
	eval   Evaluator
	epochf EpochFunc
	settings

	// x aliases the network's parameters.
	x         []float64
	lastError float64

	// evalErr holds the first error raised inside a closure whose
	// signature cannot return one.
	evalErr error
}

// NewAdapter returns the base adapter. Training algorithms embed it.
func NewAdapter(net Network, ds Dataset, eval Evaluator, epochf EpochFunc, opts ...Option) (*Adapter, error) {
	switch {
	case net == nil:
		return nil, fmt.Errorf("%w: network is nil", ErrMissingCollaborator)
	case eval == nil:
		return nil, fmt.Errorf("%w: evaluator is nil", ErrMissingCollaborator)
	case epochf == nil:
		return nil, fmt.Errorf("%w: epoch hook is nil", ErrMissingCollaborator)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		net:       net,
		input:     ds.Input,
		target:    ds.Target,
		eval:      eval,
		epochf:    epochf,
		settings:  newSettings(opts),
		x:         net.Parameters(),
		lastError: initialError,
	}, nil
}

// Name identifies the algorithm.
func (a *Adapter) Name() string { return "base" }

// Run is implemented by each training algorithm.
func (a *Adapter) Run(ctx context.Context) error {
	return ErrNotImplemented
}

// Network returns the bound network.
func (a *Adapter) Network() Network { return a.net }

// LastError returns the error recorded by the most recent evaluation.
func (a *Adapter) LastError() float64 { return a.lastError }

// Objective writes x into the network and returns the training error, which
// is also recorded for the epoch hook.
func (a *Adapter) Objective(x []float64) (float64, error) {
	if err := a.write(x); err != nil {
		return 0, err
	}
	e, err := a.eval.Error(a.net, a.input, a.target)
	if err != nil {
		return 0, err
	}
	a.lastError = e
	return e, nil
}

// Gradient writes x into the network and returns the gradient of the
// training error. The error value computed with it is recorded as well.
func (a *Adapter) Gradient(x []float64) ([]float64, error) {
	if err := a.write(x); err != nil {
		return nil, err
	}
	e, g, err := a.grad(x)
	if err != nil {
		return nil, err
	}
	a.lastError = e
	return g, nil
}

// OnIterate forwards one optimizer iteration to the epoch hook, reporting
// the most recently computed error. The hook's error is returned unchanged.
func (a *Adapter) OnIterate(x []float64) error {
	return a.epochf(a.lastError, a.net, a.input, a.target)
}

// write copies x through the alias into the network.
func (a *Adapter) write(x []float64) error {
	if len(x) != len(a.x) {
		return fmt.Errorf("%w: vector has %d elements, network has %d parameters", ErrShapeMismatch, len(x), len(a.x))
	}
	copy(a.x, x)
	return nil
}

// grad evaluates the gradient at the network's current parameters without
// recording the error.
func (a *Adapter) grad(x []float64) (float64, []float64, error) {
	e, g, err := a.eval.Grad(a.net, a.input, a.target)
	if err != nil {
		return 0, nil, err
	}
	if len(g) != len(x) {
		return 0, nil, fmt.Errorf("%w: gradient has %d elements, want %d", ErrShapeMismatch, len(g), len(x))
	}
	return e, g, nil
}

// start refreshes the alias, checks every vector the routine will see and
// returns a private copy of the starting point.
func (a *Adapter) start() ([]float64, error) {
	a.x = a.net.Parameters()
	a.evalErr = nil
	if n := a.net.NumParameters(); len(a.x) != n {
		return nil, fmt.Errorf("%w: parameter view has %d elements, network has %d parameters", ErrShapeMismatch, len(a.x), n)
	}
	x0 := a.x
	if a.initial != nil {
		if len(a.initial) != len(a.x) {
			return nil, fmt.Errorf("%w: initial vector has %d elements, network has %d parameters", ErrShapeMismatch, len(a.initial), len(a.x))
		}
		x0 = a.initial
	}
	return append([]float64(nil), x0...), nil
}

// finish writes the routine's final vector back into the network.
func (a *Adapter) finish(x []float64) error {
	return a.write(x)
}

// problem wraps the closures in gonum's calling convention. Errors are
// parked in evalErr and reported through Status.
func (a *Adapter) problem(withGrad bool) optimize.Problem {
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			if a.evalErr != nil {
				return math.NaN()
			}
			v, err := a.Objective(x)
			if err != nil {
				a.evalErr = err
				return math.NaN()
			}
			return v
		},
		Status: func() (optimize.Status, error) {
			if a.evalErr != nil {
				return optimize.Failure, a.evalErr
			}
			return optimize.NotTerminated, nil
		},
	}
	if withGrad {
		p.Grad = func(dst, x []float64) {
			if a.evalErr != nil {
				return
			}
			g, err := a.Gradient(x)
			if err != nil {
				a.evalErr = err
				return
			}
			copy(dst, g)
		}
	}
	return p
}
