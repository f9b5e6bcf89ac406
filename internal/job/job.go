// Package job describes a training job: network shape, data set and the
// options passed to the optimizer adapter. Jobs are read from YAML or JSON.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/copyleftdev/nettrain/internal/nn"
	"github.com/copyleftdev/nettrain/internal/train"
)

// ErrInvalid is returned by Validate for jobs that cannot be trained.
var ErrInvalid = errors.New("invalid job")

// Job is a serialisable training request.
type Job struct {
	// Layers lists the layer sizes, input first.
	Layers    []int        `json:"layers"`
	Input     [][]float64  `json:"input"`
	Target    [][]float64  `json:"target"`
	Algorithm string       `json:"algorithm,omitempty"`
	Epochs    int          `json:"epochs,omitempty"`
	Show      *int         `json:"show,omitempty"`
	Goal      *float64     `json:"goal,omitempty"`
	Strict    bool         `json:"strict,omitempty"`
	Seed      uint64       `json:"seed,omitempty"`
	Options   train.Config `json:"options,omitempty"`
}

// Defaults fill fields a job leaves unset.
type Defaults struct {
	Algorithm string
	Epochs    int
	Show      int
	Goal      float64
	Strict    bool
	Seed      uint64
}

// Parse decodes a YAML or JSON job. Unknown fields are rejected.
func Parse(data []byte) (*Job, error) {
	var j Job
	if err := yaml.UnmarshalStrict(data, &j); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	return &j, nil
}

// Load reads and parses the job file at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	return Parse(data)
}

// ApplyDefaults sets every unset field from d. Strict is or-ed.
func (j *Job) ApplyDefaults(d Defaults) {
	if j.Algorithm == "" {
		j.Algorithm = d.Algorithm
	}
	if j.Epochs == 0 {
		j.Epochs = d.Epochs
	}
	if j.Show == nil {
		show := d.Show
		j.Show = &show
	}
	if j.Goal == nil {
		goal := d.Goal
		j.Goal = &goal
	}
	if j.Seed == 0 {
		j.Seed = d.Seed
	}
	j.Strict = j.Strict || d.Strict
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks that the network shape and the data set agree.
func (j *Job) Validate() error {
	if len(j.Layers) < 2 {
		return invalid("need at least an input and an output layer, got %d", len(j.Layers))
	}
	for i, n := range j.Layers {
		if n <= 0 {
			return invalid("layer %d has size %d", i, n)
		}
	}
	if len(j.Input) == 0 {
		return invalid("no training samples")
	}
	if len(j.Input) != len(j.Target) {
		return invalid("%d inputs but %d targets", len(j.Input), len(j.Target))
	}
	in, out := j.Layers[0], j.Layers[len(j.Layers)-1]
	for i := range j.Input {
		if len(j.Input[i]) != in {
			return invalid("input %d has %d values, want %d", i, len(j.Input[i]), in)
		}
		if len(j.Target[i]) != out {
			return invalid("target %d has %d values, want %d", i, len(j.Target[i]), out)
		}
	}
	if j.Algorithm != "" && !slices.Contains(train.Algorithms(), j.Algorithm) {
		return fmt.Errorf("%w: %q", train.ErrUnknownAlgorithm, j.Algorithm)
	}
	if j.Epochs < 0 {
		return invalid("epochs must not be negative, got %d", j.Epochs)
	}
	if j.Show != nil && *j.Show < 0 {
		return invalid("show must not be negative, got %d", *j.Show)
	}
	return nil
}

// Network builds the untrained network described by the job.
func (j *Job) Network() (*nn.FF, error) {
	return nn.NewFF(j.Layers, j.Seed)
}

// Dataset returns the job's samples.
func (j *Job) Dataset() train.Dataset {
	return train.Dataset{Input: j.Input, Target: j.Target}
}

// TrainOptions converts the job into adapter options. Routine options come
// first so the job's generic fields take precedence.
func (j *Job) TrainOptions() []train.Option {
	cfg := j.Options.Clone()
	if j.Epochs > 0 {
		cfg[train.KeyEpochs] = j.Epochs
	}
	if j.Show != nil {
		cfg[train.KeyShow] = *j.Show
	}
	if j.Goal != nil {
		cfg[train.KeyGoal] = *j.Goal
	}
	if j.Seed != 0 && !cfg.Has(train.KeySeed) {
		cfg[train.KeySeed] = j.Seed
	}
	return []train.Option{train.WithConfig(cfg), train.WithStrict(j.Strict)}
}

// Outcome is a finished job.
type Outcome struct {
	Result  *train.Result
	Network *nn.FF
}

// Run validates the job, builds its network and trains it. extra options
// are applied after the job's own.
func (j *Job) Run(ctx context.Context, logger *zap.Logger, extra ...train.Option) (*Outcome, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	net, err := j.Network()
	if err != nil {
		return nil, err
	}
	algorithm := j.Algorithm
	if algorithm == "" {
		algorithm = train.AlgorithmBFGS
	}

	opts := append(j.TrainOptions(), train.WithLogger(logger))
	opts = append(opts, extra...)
	res, err := train.Train(ctx, algorithm, net, j.Dataset(), nn.SSE{}, opts...)
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: res, Network: net}, nil
}
