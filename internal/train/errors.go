package train

import "errors"

var (
	// ErrShapeMismatch reports a vector whose length does not match the
	// network's parameter count, or a dataset whose inputs and targets do
	// not pair up.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrConfigurationConflict reports an explicitly supplied routine option
	// that differs from the value the adapter derives from the generic
	// options. It is only returned in strict mode.
	ErrConfigurationConflict = errors.New("configuration conflict")

	// ErrNotImplemented is returned by the base adapter's Run.
	ErrNotImplemented = errors.New("run not implemented by base adapter")

	// ErrUnknownAlgorithm reports an algorithm name New does not know.
	ErrUnknownAlgorithm = errors.New("unknown training algorithm")

	// ErrMissingCollaborator reports a nil network, evaluator or epoch hook.
	ErrMissingCollaborator = errors.New("missing training collaborator")

	// ErrStop is wrapped by the errors an epoch hook returns to end training
	// normally.
	ErrStop = errors.New("training stopped")

	// ErrGoalReached is returned by Loop when the error reaches the goal.
	ErrGoalReached = stopError("the goal of training is reached")

	// ErrMaxEpochs is returned by Loop when the epoch budget is spent.
	ErrMaxEpochs = stopError("the maximum number of train epochs is reached")
)

type stopErr struct{ msg string }

func stopError(msg string) error { return &stopErr{msg: msg} }

func (e *stopErr) Error() string { return e.msg }

func (e *stopErr) Unwrap() error { return ErrStop }
