package train

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/copyleftdev/nettrain/internal/optimization/genetic"
)

// Gene initializers selectable with the init option.
const (
	InitBinary  = "binary"
	InitUniform = "uniform"
)

var gaPolicy = policy{
	iterKey: KeyNGen,
	defaults: Config{
		KeySeed: 1,
		KeyInit: InitBinary,
	},
}

// Genetic trains with a population-based evolutionary search maximizing the
// negated training error. Population size, operator probabilities and
// selection pressure are fixed; the generic epochs set the generation count.
type Genetic struct{ *Adapter }

func (t *Genetic) Name() string { return AlgorithmGenetic }

func (t *Genetic) Run(ctx context.Context) error {
	a := t.Adapter
	cfg, err := gaPolicy.resolve(a.config, a.strict, a.logger)
	if err != nil {
		return err
	}
	x0, err := a.start()
	if err != nil {
		return err
	}

	gc := genetic.DefaultConfig()
	if n, ok := cfg.Int(KeyNGen); ok {
		gc.Generations = n
	}
	if seed, ok := cfg.Int(KeySeed); ok {
		gc.Seed = uint64(seed)
	}
	initName, _ := cfg.String(KeyInit)
	switch initName {
	case InitBinary:
		gc.Init = genetic.BinaryInit
	case InitUniform:
		gc.Init = genetic.UniformInit(-0.5, 0.5)
	default:
		return fmt.Errorf("train: unknown gene initializer %q", initName)
	}

	fitness := func(genes []float64) (float64, error) {
		e, err := a.Objective(genes)
		return -e, err
	}

	hof, stats, err := genetic.Run(ctx, len(x0), fitness, gc, func(gen int, hof *genetic.HallOfFame, _ []*genetic.Individual) error {
		best := hof.Best()
		// Re-sync the network with the best individual so the hook sees it.
		if _, err := a.Objective(best.Genes); err != nil {
			return err
		}
		return a.OnIterate(best.Genes)
	})
	if err != nil {
		return err
	}
	a.logger.Debug("evolution finished",
		zap.Int("generations", stats.Generations),
		zap.Int("evaluations", stats.Evaluations),
		zap.Float64("fitness", hof.Best().Fitness),
	)
	return a.finish(hof.Best().Genes)
}
