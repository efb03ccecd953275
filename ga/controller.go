package ga

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"
)

// Option customises a Controller.
type Option func(*Controller)

// WithObserver registers a callback invoked on the controller goroutine after
// every evaluated generation.
func WithObserver(fn func(GenerationStats)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithRand replaces the seeded random source. The source is only used from
// the goroutine calling Run.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		c.rng = rng
	}
}

// Controller runs the generation loop.
type Controller struct {
	cfg       Config
	scorer    *Scorer
	selector  Selector
	crossover Crossover
	mutator   Mutator
	observer  func(GenerationStats)
	rng       *rand.Rand

	state atomic.Int32
}

// NewController validates cfg and wires the operators. The evaluator's
// direction must match cfg.Direction.
func NewController(cfg Config, renderer Renderer, evaluator *Evaluator, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := NewScorer(renderer, evaluator, cfg.Workers, cfg.EvaluationTimeout)
	if err != nil {
		return nil, err
	}
	if evaluator.Direction() != cfg.Direction {
		return nil, configErr("Direction", fmt.Sprintf("evaluator uses %s but config uses %s", evaluator.Direction(), cfg.Direction))
	}
	sel, err := ParseSelector(cfg.Selection, cfg.TournamentSize)
	if err != nil {
		return nil, err
	}
	cross, err := ParseCrossover(cfg.Crossover)
	if err != nil {
		return nil, err
	}
	mut, err := ParseMutator(cfg.Mutation, cfg.MutationSigma)
	if err != nil {
		return nil, err
	}
	cfg.Bounds = append(Bounds(nil), cfg.Bounds...)
	c := &Controller{
		cfg:       cfg,
		scorer:    scorer,
		selector:  sel,
		crossover: cross,
		mutator:   mut,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	return c, nil
}

// State reports the current loop state. Safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Scorer exposes the renderer/evaluator pair used by the run.
func (c *Controller) Scorer() *Scorer {
	return c.scorer
}

// Config returns the validated configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Run evolves the population until a termination condition is met. When ctx
// is cancelled the partial result is returned together with ctx.Err().
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	dir := c.cfg.Direction
	res := &Result{
		BestFitness: Worst(dir),
		Direction:   dir.String(),
	}

	c.setState(StateInitializing)
	pop, err := Initialize(c.rng, c.cfg.Bounds, c.cfg.PopulationSize)
	if err != nil {
		c.setState(StateTerminated)
		return nil, err
	}

	var cache *fitnessCache
	if c.cfg.CacheFitness {
		cache = newFitnessCache()
	}
	stagnant := 0

	for gen := 1; ; gen++ {
		if err := ctx.Err(); err != nil {
			res.Outcome = OutcomeCancelled
			c.setState(StateTerminated)
			return res, err
		}

		c.setState(StateEvaluating)
		stats := c.evaluate(ctx, pop, cache, res)
		stats.Generation = gen
		res.Generations = gen

		improved := false
		if bi := bestIndex(pop, dir); bi >= 0 {
			stats.BestGenome = pop[bi].Genome.Clone()
			if res.Best == nil || Better(dir, pop[bi].Score, res.BestFitness) {
				improved = true
				res.Best = pop[bi].Genome.Clone()
				res.BestFitness = pop[bi].Score
				res.BestGeneration = gen
			}
		}
		if improved || gen == 1 {
			stagnant = 0
		} else {
			stagnant++
		}

		stats.BestEver = res.BestFitness
		stats.ElapsedSeconds = time.Since(start).Seconds()
		res.History = append(res.History, stats)
		if c.observer != nil {
			c.observer(stats)
		}

		if outcome, done := c.terminated(res, gen, stagnant); done {
			res.Outcome = outcome
			if outcome == OutcomeMaxGenerations && c.cfg.TargetFitness != nil {
				res.Warning = &ConvergenceWarning{
					Target:      *c.cfg.TargetFitness,
					BestFitness: res.BestFitness,
					Generations: gen,
				}
			}
			c.setState(StateTerminated)
			return res, nil
		}

		c.setState(StateBreeding)
		pop, err = c.breed(pop)
		if err != nil {
			c.setState(StateTerminated)
			return res, fmt.Errorf("breed generation %d: %w", gen+1, err)
		}
		if cache != nil {
			cache.rotate()
		}
	}
}

func (c *Controller) terminated(res *Result, gen, stagnant int) (Outcome, bool) {
	dir := c.cfg.Direction
	if c.cfg.TargetFitness != nil && res.Best != nil && Reached(dir, res.BestFitness, *c.cfg.TargetFitness) {
		return OutcomeTargetReached, true
	}
	if c.cfg.StagnationWindow > 0 && stagnant >= c.cfg.StagnationWindow {
		return OutcomeStagnated, true
	}
	if gen >= c.cfg.MaxGenerations {
		return OutcomeMaxGenerations, true
	}
	return "", false
}

// evaluate scores every unscored slot of pop in place. Cache lookups and
// stores happen on the calling goroutine; rendering runs on the scorer pool.
func (c *Controller) evaluate(ctx context.Context, pop Population, cache *fitnessCache, res *Result) GenerationStats {
	var stats GenerationStats
	stats.PopulationSize = len(pop)

	pending := make([]int, 0, len(pop))
	for i := range pop {
		if pop[i].Evaluated {
			continue
		}
		if cache != nil {
			if score, ok := cache.get(pop[i].Genome); ok {
				pop[i].Score = score
				pop[i].Evaluated = true
				stats.CacheHits++
				continue
			}
		}
		pending = append(pending, i)
	}

	genomes := make([]Genome, len(pending))
	for j, i := range pending {
		genomes[j] = pop[i].Genome
	}
	// A started generation always completes. Cancellation is observed at the
	// next generation boundary so that pending renders are not miscounted as
	// failures.
	evals := c.scorer.ScoreAll(context.WithoutCancel(ctx), genomes)
	for j, i := range pending {
		ev := evals[j]
		stats.Evaluations++
		pop[i].Evaluated = true
		if ev.Err != nil {
			pop[i].Score = Worst(c.cfg.Direction)
			pop[i].Failed = true
			stats.Failures++
			res.LastFailure = &EvaluationFailure{Index: i, Genome: pop[i].Genome.Clone(), Err: ev.Err}
			continue
		}
		pop[i].Score = ev.Score
		pop[i].Failed = false
		if cache != nil {
			cache.put(pop[i].Genome, ev.Score)
		}
	}
	if cache != nil {
		// Carried elites keep their score in the next cache generation.
		for i := range pop {
			if pop[i].Evaluated && !pop[i].Failed {
				cache.put(pop[i].Genome, pop[i].Score)
			}
		}
	}

	stats.Best, stats.Mean, stats.Std = generationStats(pop, c.cfg.Direction)
	res.Failures += stats.Failures
	res.Evaluations += stats.Evaluations
	res.CacheHits += stats.CacheHits
	return stats
}

// breed builds the next population: elites, then offspring, then immigrants.
func (c *Controller) breed(pop Population) (Population, error) {
	n := c.cfg.PopulationSize
	next := make(Population, 0, n)
	dir := c.cfg.Direction

	for _, i := range rankIndices(pop, dir)[:c.cfg.Elitism] {
		ind := pop[i]
		elite := Individual{Genome: ind.Genome.Clone()}
		if !ind.Failed {
			elite.Score = ind.Score
			elite.Evaluated = true
		}
		next = append(next, elite)
	}

	need := n - c.cfg.Elitism - c.cfg.Immigrants
	if need > 0 {
		parents, err := c.selector.Select(c.rng, pop, dir, need+need%2)
		if err != nil {
			return nil, err
		}
		for p := 0; len(next) < c.cfg.Elitism+need; p += 2 {
			a := pop[parents[p]].Genome
			b := pop[parents[p+1]].Genome
			var c1, c2 Genome
			if c.rng.Float64() < c.cfg.CrossoverRate {
				c1, c2 = c.crossover.Cross(c.rng, a, b)
			} else {
				c1, c2 = a.Clone(), b.Clone()
			}
			next = append(next, Individual{Genome: c.mutator.Mutate(c.rng, c1, c.cfg.Bounds, c.cfg.MutationRate)})
			if len(next) < c.cfg.Elitism+need {
				next = append(next, Individual{Genome: c.mutator.Mutate(c.rng, c2, c.cfg.Bounds, c.cfg.MutationRate)})
			}
		}
	}

	for len(next) < n {
		next = append(next, Individual{Genome: c.cfg.Bounds.Random(c.rng)})
	}
	return next, nil
}

// rankIndices orders pop best first. Failed and unevaluated slots sort last;
// ties keep slot order.
func rankIndices(pop Population, dir Direction) []int {
	idx := make([]int, len(pop))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := pop[idx[a]], pop[idx[b]]
		okA := ia.Evaluated && !ia.Failed
		okB := ib.Evaluated && !ib.Failed
		if okA != okB {
			return okA
		}
		return Better(dir, ia.Score, ib.Score)
	})
	return idx
}

func bestIndex(pop Population, dir Direction) int {
	best := -1
	for i, ind := range pop {
		if !ind.Evaluated || ind.Failed {
			continue
		}
		if best < 0 || Better(dir, ind.Score, pop[best].Score) {
			best = i
		}
	}
	return best
}
