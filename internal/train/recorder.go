package train

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// iterationRecorder forwards gonum's major iterations to the epoch hook.
// With disp set it also drives gonum's progress printer.
//
// gonum reports the starting location as a major iteration and never
// records the iteration that terminates the run. The first is dropped here;
// the second is forwarded by flush once Minimize returns.
type iterationRecorder struct {
	ctx     context.Context
	a       *Adapter
	printer *optimize.Printer

	x0        []float64
	started   bool
	forwarded int
	last      []float64
	lastErr   float64
}

var _ optimize.Recorder = (*iterationRecorder)(nil)

func newIterationRecorder(ctx context.Context, a *Adapter, x0 []float64, disp bool) *iterationRecorder {
	r := &iterationRecorder{ctx: ctx, a: a, x0: x0}
	if disp {
		r.printer = optimize.NewPrinter()
	}
	return r
}

func (r *iterationRecorder) Init() error {
	if r.printer != nil {
		return r.printer.Init()
	}
	return nil
}

func (r *iterationRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if r.printer != nil {
		if err := r.printer.Record(loc, op, stats); err != nil {
			return err
		}
	}
	if r.a.evalErr != nil {
		return r.a.evalErr
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	first := !r.started
	r.started = true
	if first && floats.Equal(loc.X, r.x0) {
		return nil
	}
	return r.forward(loc.X)
}

func (r *iterationRecorder) forward(x []float64) error {
	r.forwarded++
	r.last = append(r.last[:0], x...)
	r.lastErr = r.a.lastError
	return r.a.OnIterate(x)
}

// flush reports the routine's final location x, whose error is f, to the
// hook unless the hook has already seen exactly that pair. The network is
// re-evaluated at x first so the hook sees the error of the parameters it
// is handed.
func (r *iterationRecorder) flush(x []float64, f float64) error {
	if r.forwarded > 0 && r.lastErr == f && floats.Equal(r.last, x) {
		return nil
	}
	if _, err := r.a.Objective(x); err != nil {
		return err
	}
	return r.forward(x)
}
