// Package genetic implements a simple generational evolutionary algorithm
// over real-valued gene lists: tournament selection, blend crossover,
// Gaussian mutation and a bounded hall of fame.
//
// Fitness is maximized. Callers minimizing an error supply its negation.
package genetic

import (
	"context"
	"math/rand/v2"

	"github.com/copyleftdev/nettrain/internal/optimization"
)

const component = "genetic"

// FitnessFunc returns the fitness of a gene list; higher is better.
type FitnessFunc func(genes []float64) (float64, error)

// Initializer returns the value of one freshly seeded gene.
type Initializer func(rng *rand.Rand) float64

// BinaryInit seeds each gene with 0 or 1 drawn uniformly.
func BinaryInit(rng *rand.Rand) float64 {
	return float64(rng.IntN(2))
}

// UniformInit returns an initializer drawing genes uniformly from [lo, hi).
func UniformInit(lo, hi float64) Initializer {
	return func(rng *rand.Rand) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
}

// Config holds the evolutionary parameters.
type Config struct {
	PopulationSize int
	Generations    int

	// CrossoverProb is the probability that two consecutive offspring mate.
	CrossoverProb float64
	// MutationProb is the probability that an offspring is mutated.
	MutationProb float64

	TournamentSize int
	HallOfFameSize int

	// BlendAlpha widens the blend crossover interval on both sides.
	BlendAlpha float64

	// Gaussian mutation: each gene is perturbed with probability
	// MutationGeneProb by a sample of N(MutationMu, MutationSigma).
	MutationMu       float64
	MutationSigma    float64
	MutationGeneProb float64

	Init Initializer
	Seed uint64
}

// DefaultConfig returns the parameters used by network training.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   100,
		Generations:      500,
		CrossoverProb:    0.5,
		MutationProb:     0.2,
		TournamentSize:   3,
		HallOfFameSize:   1,
		BlendAlpha:       0.5,
		MutationMu:       0,
		MutationSigma:    0.05,
		MutationGeneProb: 0.05,
		Init:             BinaryInit,
		Seed:             1,
	}
}

// Individual is a gene list with its cached fitness.
type Individual struct {
	Genes   []float64
	Fitness float64
	valid   bool
}

// Valid reports whether the fitness reflects the current genes.
func (ind *Individual) Valid() bool { return ind.valid }

func (ind *Individual) clone() *Individual {
	return &Individual{
		Genes:   append([]float64(nil), ind.Genes...),
		Fitness: ind.Fitness,
		valid:   ind.valid,
	}
}

func (ind *Individual) invalidate() { ind.valid = false }

// Callback is invoked once per generation, after its offspring have been
// evaluated and the hall of fame updated. A non-nil error stops the run and
// is returned unchanged from Run.
type Callback func(gen int, hof *HallOfFame, pop []*Individual) error

// Stats summarises a finished run.
type Stats struct {
	Generations int
	Evaluations int
	// Initial holds the fitness of every individual evaluated in
	// generation zero.
	Initial []float64
}

// Run evolves a population of gene lists of length dim and returns the hall
// of fame. The hall of fame is returned even when the run stops early.
func Run(ctx context.Context, dim int, fitness FitnessFunc, cfg Config, cb Callback) (*HallOfFame, *Stats, error) {
	if fitness == nil {
		return nil, nil, optimization.NewErrorf("fitness function is required").WithComponent(component).WithOperation("run")
	}
	if dim <= 0 {
		return nil, nil, optimization.NewErrorf("dimension must be positive, got %d", dim).WithComponent(component).WithOperation("run")
	}
	if cfg.PopulationSize < 2 {
		return nil, nil, optimization.NewErrorf("population size must be at least 2, got %d", cfg.PopulationSize).WithComponent(component).WithOperation("run")
	}
	if cfg.TournamentSize < 1 {
		cfg.TournamentSize = 1
	}
	if cfg.HallOfFameSize < 1 {
		cfg.HallOfFameSize = 1
	}
	if cfg.Init == nil {
		cfg.Init = BinaryInit
	}

	e := &engine{
		cfg:     cfg,
		fitness: fitness,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x2545f4914f6cdd1d)),
	}
	hof := NewHallOfFame(cfg.HallOfFameSize)
	stats := &Stats{}

	pop := e.population(dim)
	if err := e.evaluate(pop); err != nil {
		return hof, e.stats(stats, 0), err
	}
	stats.Initial = make([]float64, len(pop))
	for i, ind := range pop {
		stats.Initial[i] = ind.Fitness
	}
	hof.Update(pop)

	for gen := 1; gen <= cfg.Generations; gen++ {
		if err := optimization.CheckContext(ctx, component, "generation"); err != nil {
			return hof, e.stats(stats, gen-1), err
		}

		offspring := e.selectTournament(pop, len(pop))
		e.vary(offspring)
		if err := e.evaluate(offspring); err != nil {
			return hof, e.stats(stats, gen-1), err
		}
		hof.Update(offspring)
		pop = offspring

		if cb != nil {
			if err := cb(gen, hof, pop); err != nil {
				return hof, e.stats(stats, gen), err
			}
		}
	}

	return hof, e.stats(stats, cfg.Generations), nil
}

type engine struct {
	cfg     Config
	fitness FitnessFunc
	rng     *rand.Rand
	evals   int
}

func (e *engine) stats(s *Stats, gens int) *Stats {
	s.Generations = gens
	s.Evaluations = e.evals
	return s
}

func (e *engine) population(dim int) []*Individual {
	pop := make([]*Individual, e.cfg.PopulationSize)
	for i := range pop {
		genes := make([]float64, dim)
		for j := range genes {
			genes[j] = e.cfg.Init(e.rng)
		}
		pop[i] = &Individual{Genes: genes}
	}
	return pop
}

// evaluate computes fitness for every individual whose genes changed.
func (e *engine) evaluate(pop []*Individual) error {
	for _, ind := range pop {
		if ind.valid {
			continue
		}
		fit, err := e.fitness(ind.Genes)
		if err != nil {
			return err
		}
		e.evals++
		ind.Fitness = fit
		ind.valid = true
	}
	return nil
}

// selectTournament picks k individuals, each the fittest of TournamentSize
// random aspirants. Selected individuals are cloned.
func (e *engine) selectTournament(pop []*Individual, k int) []*Individual {
	chosen := make([]*Individual, k)
	for i := range chosen {
		best := pop[e.rng.IntN(len(pop))]
		for j := 1; j < e.cfg.TournamentSize; j++ {
			asp := pop[e.rng.IntN(len(pop))]
			if asp.Fitness > best.Fitness {
				best = asp
			}
		}
		chosen[i] = best.clone()
	}
	return chosen
}

// vary applies crossover to consecutive pairs and mutation to each
// offspring, invalidating the fitness of anything it touches.
func (e *engine) vary(off []*Individual) {
	for i := 1; i < len(off); i += 2 {
		if e.rng.Float64() < e.cfg.CrossoverProb {
			e.blend(off[i-1], off[i])
			off[i-1].invalidate()
			off[i].invalidate()
		}
	}
	for _, ind := range off {
		if e.rng.Float64() < e.cfg.MutationProb {
			e.mutate(ind)
			ind.invalidate()
		}
	}
}

func (e *engine) blend(a, b *Individual) {
	alpha := e.cfg.BlendAlpha
	n := min(len(a.Genes), len(b.Genes))
	for i := 0; i < n; i++ {
		gamma := (1+2*alpha)*e.rng.Float64() - alpha
		x1, x2 := a.Genes[i], b.Genes[i]
		a.Genes[i] = (1-gamma)*x1 + gamma*x2
		b.Genes[i] = gamma*x1 + (1-gamma)*x2
	}
}

func (e *engine) mutate(ind *Individual) {
	for i := range ind.Genes {
		if e.rng.Float64() < e.cfg.MutationGeneProb {
			ind.Genes[i] += e.cfg.MutationMu + e.cfg.MutationSigma*e.rng.NormFloat64()
		}
	}
}
