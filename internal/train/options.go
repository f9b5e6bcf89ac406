package train

import (
	"maps"

	"go.uber.org/zap"
)

// Option configures an adapter.
type Option func(*settings)

type settings struct {
	config   Config
	strict   bool
	initial  []float64
	logger   *zap.Logger
	observer TrialObserver
	onEpoch  func(epoch int, lastErr float64)
}

func newSettings(opts []Option) settings {
	s := settings{config: Config{}}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// WithConfig adds option values. Later calls override earlier keys.
func WithConfig(c Config) Option {
	return func(s *settings) {
		maps.Copy(s.config, c)
	}
}

// WithEpochs sets the generic epoch budget.
func WithEpochs(n int) Option {
	return func(s *settings) { s.config[KeyEpochs] = n }
}

// WithStrict makes an explicit routine option that disagrees with the
// generic epochs fail the run with ErrConfigurationConflict.
func WithStrict(strict bool) Option {
	return func(s *settings) { s.strict = strict }
}

// WithInitial starts the search from x instead of the network's current
// parameters. The vector is copied when the run starts.
func WithInitial(x []float64) Option {
	return func(s *settings) { s.initial = x }
}

// WithLogger sets the logger used for warnings and progress.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithTrialObserver replaces the basin-hopping trial printer.
func WithTrialObserver(o TrialObserver) Option {
	return func(s *settings) { s.observer = o }
}

// WithEpochObserver registers a function Train's loop calls after every
// epoch it records.
func WithEpochObserver(fn func(epoch int, lastErr float64)) Option {
	return func(s *settings) { s.onEpoch = fn }
}
