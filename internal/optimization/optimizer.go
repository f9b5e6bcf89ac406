// Package optimization holds the value types shared by the population and
// stochastic search routines that train networks without gradients.
package optimization

import "context"

// ObjectiveFunction evaluates a candidate parameter vector. Implementations
// may keep a reference to x only for the duration of the call.
type ObjectiveFunction func(x []float64) (float64, error)

// Solution is a candidate vector together with its objective value.
type Solution struct {
	Parameters []float64
	Value      float64
}

// Clone returns a deep copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Parameters: append([]float64(nil), s.Parameters...),
		Value:      s.Value,
	}
}

// Result contains the outcome of a routine run.
type Result struct {
	// Best is the lowest-valued solution seen during the run.
	Best *Solution

	// Iterations is the number of completed major iterations
	// (hops or generations).
	Iterations int

	// Evaluations is the number of objective evaluations performed.
	Evaluations int
}

// CheckContext returns the context error, if any, wrapped with the
// component and operation that observed it.
func CheckContext(ctx context.Context, component, op string) error {
	select {
	case <-ctx.Done():
		return Wrap(ctx.Err(), "run cancelled").WithComponent(component).WithOperation(op)
	default:
		return nil
	}
}
