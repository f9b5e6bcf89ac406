package train

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/copyleftdev/nettrain/internal/optimization/basinhop"
)

var bhPolicy = policy{
	iterKey:     KeyNIter,
	dispDefault: true,
	defaults: Config{
		KeyTemperature: 1.0,
		KeyStepSize:    0.5,
		KeySeed:        1,
	},
}

// TrialObserver is notified of every basin-hopping trial before the epoch
// hook runs.
type TrialObserver interface {
	ObserveTrial(x []float64, f float64, accepted bool)
}

// TrialObserverFunc adapts a function to TrialObserver.
type TrialObserverFunc func(x []float64, f float64, accepted bool)

func (fn TrialObserverFunc) ObserveTrial(x []float64, f float64, accepted bool) { fn(x, f, accepted) }

// PrintTrials returns an observer that writes each trial vector to w.
func PrintTrials(w io.Writer) TrialObserver {
	return TrialObserverFunc(func(x []float64, _ float64, _ bool) {
		fmt.Fprintln(w, x)
	})
}

// BasinHopping trains with a stochastic global search that hops between
// local minima. The generic epochs set the number of hops.
type BasinHopping struct{ *Adapter }

func (t *BasinHopping) Name() string { return AlgorithmBasinHopping }

func (t *BasinHopping) Run(ctx context.Context) error {
	a := t.Adapter
	cfg, err := bhPolicy.resolve(a.config, a.strict, a.logger)
	if err != nil {
		return err
	}
	x0, err := a.start()
	if err != nil {
		return err
	}

	s := basinhop.Settings{}
	if n, ok := cfg.Int(KeyNIter); ok {
		s.NIter = n
	}
	if temp, ok := cfg.Float(KeyTemperature); ok {
		s.Temperature = temp
	}
	if step, ok := cfg.Float(KeyStepSize); ok {
		s.StepSize = step
	}
	if n, ok := cfg.Int(KeyLocalMaxIter); ok {
		s.LocalIterations = n
	}
	if seed, ok := cfg.Int(KeySeed); ok {
		s.Seed = uint64(seed)
	}

	observer := a.observer
	if observer == nil {
		observer = PrintTrials(os.Stdout)
	}
	disp, _ := cfg.Bool(KeyDisp)

	res, err := basinhop.Minimize(ctx, a.Objective, x0, s, func(xTrial []float64, fTrial float64, accepted bool) error {
		observer.ObserveTrial(xTrial, fTrial, accepted)
		if disp {
			a.logger.Info("basin hop", zap.Float64("energy", fTrial), zap.Bool("accepted", accepted))
		}
		// Re-sync the network with the trial minimum so the hook sees it.
		if _, err := a.Objective(xTrial); err != nil {
			return err
		}
		return a.OnIterate(xTrial)
	})
	if err != nil {
		return err
	}
	return a.finish(res.Best.Parameters)
}
