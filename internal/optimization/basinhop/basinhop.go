// Package basinhop implements basin-hopping: a stochastic global search that
// alternates random displacements with local downhill-simplex minimization
// and accepts new basins with the Metropolis criterion.
package basinhop

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/nettrain/internal/optimization"
)

const component = "basinhop"

// Settings configures a basin-hopping run.
type Settings struct {
	// NIter is the number of hops performed after the initial local
	// minimization.
	NIter int

	// Temperature controls the Metropolis acceptance of uphill hops.
	Temperature float64

	// StepSize is the half-width of the uniform random displacement.
	StepSize float64

	// LocalIterations caps the major iterations of each local search.
	// Zero means 200 iterations per dimension.
	LocalIterations int

	// Seed seeds the displacement and acceptance generator.
	Seed uint64
}

// DefaultSettings returns the settings used when a field is left zero.
func DefaultSettings() Settings {
	return Settings{
		NIter:       100,
		Temperature: 1.0,
		StepSize:    0.5,
		Seed:        1,
	}
}

// Callback is invoked after every hop with the local minimum found for the
// trial, its objective value and whether the hop was accepted. A non-nil
// error stops the run and is returned unchanged from Minimize.
type Callback func(xTrial []float64, fTrial float64, accepted bool) error

// Minimize runs basin-hopping from x0. The returned result holds the lowest
// local minimum found over all hops.
func Minimize(ctx context.Context, f optimization.ObjectiveFunction, x0 []float64, s Settings, cb Callback) (*optimization.Result, error) {
	if f == nil {
		return nil, optimization.NewErrorf("objective function is required").WithComponent(component).WithOperation("minimize")
	}
	if len(x0) == 0 {
		return nil, optimization.NewErrorf("initial vector is empty").WithComponent(component).WithOperation("minimize")
	}
	s = withDefaults(s)
	if s.LocalIterations <= 0 {
		s.LocalIterations = 200 * len(x0)
	}

	h := &hopper{
		f:        f,
		settings: s,
		rng:      rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)),
	}

	cur, err := h.localMinimize(x0)
	if err != nil {
		return nil, err
	}
	best := cur.Clone()

	for i := 0; i < s.NIter; i++ {
		if err := optimization.CheckContext(ctx, component, "hop"); err != nil {
			return h.result(best, i), err
		}

		trial := h.displace(cur.Parameters)
		next, err := h.localMinimize(trial)
		if err != nil {
			return h.result(best, i), err
		}

		accepted := h.accept(cur.Value, next.Value)
		if accepted {
			cur = next
		}
		if next.Value < best.Value {
			best = next.Clone()
		}

		if cb != nil {
			if err := cb(next.Parameters, next.Value, accepted); err != nil {
				return h.result(best, i+1), err
			}
		}
	}

	return h.result(best, s.NIter), nil
}

func withDefaults(s Settings) Settings {
	d := DefaultSettings()
	if s.NIter <= 0 {
		s.NIter = d.NIter
	}
	if s.Temperature <= 0 {
		s.Temperature = d.Temperature
	}
	if s.StepSize <= 0 {
		s.StepSize = d.StepSize
	}
	if s.Seed == 0 {
		s.Seed = d.Seed
	}
	return s
}

type hopper struct {
	f        optimization.ObjectiveFunction
	settings Settings
	rng      *rand.Rand
	evals    int
}

func (h *hopper) result(best *optimization.Solution, iterations int) *optimization.Result {
	return &optimization.Result{
		Best:        best.Clone(),
		Iterations:  iterations,
		Evaluations: h.evals,
	}
}

// displace returns x shifted by a uniform random step in every coordinate.
func (h *hopper) displace(x []float64) []float64 {
	step := make([]float64, len(x))
	for i := range step {
		step[i] = (2*h.rng.Float64() - 1) * h.settings.StepSize
	}
	floats.Add(step, x)
	return step
}

// accept applies the Metropolis criterion.
func (h *hopper) accept(fOld, fNew float64) bool {
	if fNew < fOld {
		return true
	}
	w := math.Exp(-(fNew - fOld) / h.settings.Temperature)
	return h.rng.Float64() < w
}

// localMinimize runs a Nelder-Mead search from x.
func (h *hopper) localMinimize(x []float64) (*optimization.Solution, error) {
	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.NaN()
			}
			h.evals++
			v, err := h.f(x)
			if err != nil {
				evalErr = err
				return math.NaN()
			}
			return v
		},
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			return optimize.NotTerminated, nil
		},
	}

	settings := &optimize.Settings{
		MajorIterations: h.settings.LocalIterations,
	}

	res, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, optimization.Wrap(err, "local search failed").WithComponent(component).WithOperation("local")
	}
	return &optimization.Solution{
		Parameters: append([]float64(nil), res.X...),
		Value:      res.F,
	}, nil
}
