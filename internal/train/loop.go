package train

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Loop is the epoch hook used by Train. It counts epochs, keeps the error
// history, reports progress every Show epochs and stops training when the
// goal is reached or the epoch budget is exceeded.
type Loop struct {
	Epochs int
	Show   int
	Goal   float64

	Logger  *zap.Logger
	OnEpoch func(epoch int, lastErr float64)

	epoch   int
	history []float64
}

// Epoch records one iteration. It satisfies EpochFunc.
//
// The budget check fires on the first epoch past Epochs, so a routine whose
// own iteration limit equals the budget finishes and writes back its result.
func (l *Loop) Epoch(lastErr float64, _ Network, _, _ [][]float64) error {
	l.epoch++
	l.history = append(l.history, lastErr)
	if l.OnEpoch != nil {
		l.OnEpoch(l.epoch, lastErr)
	}

	if l.Show > 0 && l.epoch%l.Show == 0 && l.Logger != nil {
		l.Logger.Info("epoch", zap.Int("epoch", l.epoch), zap.Float64("error", lastErr))
	}

	if lastErr <= l.Goal {
		return ErrGoalReached
	}
	if l.Epochs > 0 && l.epoch > l.Epochs {
		return ErrMaxEpochs
	}
	return nil
}

// EpochCount returns the number of recorded epochs.
func (l *Loop) EpochCount() int { return l.epoch }

// History returns the error recorded at every epoch.
func (l *Loop) History() []float64 { return l.history }

// Reasons a training run ended.
const (
	ReasonFinished  = "finished"
	ReasonGoal      = "goal"
	ReasonMaxEpochs = "epochs"
)

// Result summarises a Train call.
type Result struct {
	Algorithm string
	Epochs    int
	Error     float64
	History   []float64
	Reason    string
	Duration  time.Duration
}

// Train runs the named algorithm with a Loop as its epoch hook. Stops
// signalled by the loop end training normally; every other error is
// returned as is.
func Train(ctx context.Context, name string, net Network, ds Dataset, eval Evaluator, opts ...Option) (*Result, error) {
	s := newSettings(opts)
	generic := genericDefaults()
	for _, k := range []string{KeyEpochs, KeyShow, KeyGoal} {
		if v, ok := s.config[k]; ok {
			generic[k] = v
		}
	}
	loop := &Loop{Logger: s.logger, OnEpoch: s.onEpoch}
	loop.Epochs, _ = generic.Int(KeyEpochs)
	loop.Show, _ = generic.Int(KeyShow)
	loop.Goal, _ = generic.Float(KeyGoal)

	t, err := New(name, net, ds, eval, loop.Epoch, opts...)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	runErr := t.Run(ctx)
	res := &Result{
		Algorithm: t.Name(),
		Epochs:    loop.EpochCount(),
		History:   loop.History(),
		Reason:    ReasonFinished,
		Duration:  time.Since(started),
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, ErrGoalReached):
		res.Reason = ReasonGoal
	case errors.Is(runErr, ErrMaxEpochs):
		res.Reason = ReasonMaxEpochs
	default:
		return nil, runErr
	}

	res.Error, err = eval.Error(net, ds.Input, ds.Target)
	if err != nil {
		return nil, err
	}
	s.logger.Info("training finished",
		zap.String("algorithm", res.Algorithm),
		zap.String("reason", res.Reason),
		zap.Int("epochs", res.Epochs),
		zap.Float64("error", res.Error),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
