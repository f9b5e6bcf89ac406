package train

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const defaultGTol = 1e-5

var (
	bfgsPolicy = policy{
		iterKey:     KeyMaxIter,
		dispDefault: true,
		defaults:    Config{KeyGTol: defaultGTol},
	}
	cgPolicy = policy{
		dispDefault: true,
		defaults:    Config{KeyGTol: defaultGTol},
	}
	// Newton-CG leaves disp untouched.
	ncgPolicy = policy{
		defaults: Config{KeyGTol: defaultGTol, KeyEps: 1e-6},
	}
	rhcPolicy = policy{
		iterKey:     KeyMaxIter,
		dispDefault: true,
		defaults:    Config{KeySimplexSize: 0.05},
	}
)

// BFGS trains with the Broyden-Fletcher-Goldfarb-Shanno quasi-Newton method.
// The generic epochs bound the routine's major iterations.
type BFGS struct{ *Adapter }

func (t *BFGS) Name() string { return AlgorithmBFGS }

func (t *BFGS) Run(ctx context.Context) error {
	return t.minimize(ctx, bfgsPolicy, func(Config) optimize.Method {
		return &optimize.BFGS{}
	}, true, false)
}

// CG trains with nonlinear conjugate gradient. The iteration limit is left
// to the routine unless maxiter is given explicitly.
type CG struct{ *Adapter }

func (t *CG) Name() string { return AlgorithmCG }

func (t *CG) Run(ctx context.Context) error {
	return t.minimize(ctx, cgPolicy, func(Config) optimize.Method {
		return &optimize.CG{}
	}, true, false)
}

// NewtonCG trains with a line-search Newton method. The Hessian is never
// supplied by the network: it is formed from central differences of the
// gradient.
type NewtonCG struct{ *Adapter }

func (t *NewtonCG) Name() string { return AlgorithmNewtonCG }

func (t *NewtonCG) Run(ctx context.Context) error {
	return t.minimize(ctx, ncgPolicy, func(Config) optimize.Method {
		return &optimize.Newton{}
	}, true, true)
}

// HillClimb trains without gradients using downhill simplex search.
// The generic epochs bound the routine's major iterations.
type HillClimb struct{ *Adapter }

func (t *HillClimb) Name() string { return AlgorithmHillClimb }

func (t *HillClimb) Run(ctx context.Context) error {
	return t.minimize(ctx, rhcPolicy, func(cfg Config) optimize.Method {
		m := &optimize.NelderMead{}
		if size, ok := cfg.Float(KeySimplexSize); ok {
			m.SimplexSize = size
		}
		return m
	}, false, false)
}

// minimize runs one gonum method and writes its result into the network.
func (a *Adapter) minimize(ctx context.Context, p policy, method func(Config) optimize.Method, withGrad, withHess bool) error {
	cfg, err := p.resolve(a.config, a.strict, a.logger)
	if err != nil {
		return err
	}
	x0, err := a.start()
	if err != nil {
		return err
	}

	disp, _ := cfg.Bool(KeyDisp)
	rec := newIterationRecorder(ctx, a, x0, disp)
	settings := &optimize.Settings{
		Recorder: rec,
	}
	if n, ok := cfg.Int(KeyMaxIter); ok && n > 0 {
		settings.MajorIterations = n
	}
	if withGrad {
		if gtol, ok := cfg.Float(KeyGTol); ok {
			settings.GradientThreshold = gtol
		}
	}

	problem := a.problem(withGrad)
	if withHess {
		eps, _ := cfg.Float(KeyEps)
		problem.Hess = a.hessian(eps)
	}

	a.logger.Debug("starting optimizer", zap.Int("parameters", len(x0)), zap.Any("config", cfg))
	result, err := optimize.Minimize(problem, x0, settings, method(cfg))
	if a.evalErr != nil {
		return a.evalErr
	}
	if err != nil {
		if result == nil || !lineSearchStalled(err) {
			return err
		}
		// The best location found so far is still a valid result.
		a.logger.Warn("line search stalled, keeping best location",
			zap.Float64("error", result.F),
			zap.Error(err),
		)
	}
	a.logger.Debug("optimizer finished",
		zap.Stringer("status", result.Status),
		zap.Int("iterations", result.MajorIterations),
		zap.Int("evaluations", result.FuncEvaluations),
		zap.Float64("error", result.F),
	)
	if err := a.finish(result.X); err != nil {
		return err
	}
	return rec.flush(result.X, result.F)
}

func lineSearchStalled(err error) bool {
	return errors.Is(err, optimize.ErrNoProgress) || errors.Is(err, optimize.ErrLinesearcherFailure)
}

// hessian returns a Hessian callback built from central differences of the
// gradient. Gradient probes do not update the recorded error, and the alias
// is restored to x afterwards.
func (a *Adapter) hessian(step float64) func(dst *mat.SymDense, x []float64) {
	return func(dst *mat.SymDense, x []float64) {
		if a.evalErr != nil {
			return
		}
		n := len(x)
		jac := mat.NewDense(n, n, nil)
		fd.Jacobian(jac, func(y, xp []float64) {
			if a.evalErr != nil {
				return
			}
			if err := a.write(xp); err != nil {
				a.evalErr = err
				return
			}
			_, g, err := a.grad(xp)
			if err != nil {
				a.evalErr = err
				return
			}
			copy(y, g)
		}, x, &fd.JacobianSettings{
			Formula: fd.Central,
			Step:    step,
		})
		if err := a.write(x); err != nil && a.evalErr == nil {
			a.evalErr = err
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				dst.SetSym(i, j, 0.5*(jac.At(i, j)+jac.At(j, i)))
			}
		}
	}
}
