package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-synthga/ga"
)

// MayflyVariants lists the accepted variant names.
var MayflyVariants = []string{"ma", "desma", "olce", "eobbma", "gsasma", "mpma", "aoblmoa"}

// MayflyConfig controls Mayfly. Each round is an independent Mayfly run on
// positions normalised to [0, 1] and mapped onto the bounds.
type MayflyConfig struct {
	Variant        string `json:"variant"`
	Population     int    `json:"population"`
	RoundEvals     int    `json:"round_evals"`
	MaxEvaluations int    `json:"max_evaluations"`
	Seed           int64  `json:"seed"`

	// Observer, when set, is called after every round.
	Observer func(Step) `json:"-"`
}

func DefaultMayflyConfig() MayflyConfig {
	return MayflyConfig{
		Variant:        "desma",
		Population:     10,
		RoundEvals:     600,
		MaxEvaluations: 3000,
		Seed:           1,
	}
}

func (c MayflyConfig) Validate() error {
	if _, err := newMayflyConfig(strings.ToLower(c.Variant), 1, 1, 1); err != nil {
		return err
	}
	if c.Population < 2 {
		return fmt.Errorf("mayfly population must be >= 2 (got %d)", c.Population)
	}
	if c.RoundEvals <= 0 || c.MaxEvaluations <= 0 {
		return fmt.Errorf("mayfly evaluation budgets must be > 0 (got %d/%d)", c.RoundEvals, c.MaxEvaluations)
	}
	return nil
}

// mayflyState tracks the incumbent across objective calls.
type mayflyState struct {
	mu          sync.Mutex
	best        ga.Genome
	bestFitness float64
	bestCost    float64
	evals       int
	failures    int
}

// Mayfly runs Mayfly rounds until the evaluation budget is spent or ctx is
// cancelled. Mayfly minimises, so similarities are converted to 1-score.
func Mayfly(ctx context.Context, cfg MayflyConfig, bounds ga.Bounds, scorer *ga.Scorer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is nil")
	}
	dir := scorer.Direction()
	variant := strings.ToLower(cfg.Variant)

	st := &mayflyState{bestFitness: ga.Worst(dir), bestCost: math.Inf(1)}
	penalty := func() float64 {
		if math.IsInf(st.bestCost, 1) {
			return 1e12
		}
		return st.bestCost + 1.0
	}

	res := &Result{}
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			res.Stop = StopCancelled
			st.fill(res)
			return res, err
		}
		st.mu.Lock()
		remaining := cfg.MaxEvaluations - st.evals
		st.mu.Unlock()
		if remaining <= 0 {
			res.Stop = StopMaxEvaluations
			st.fill(res)
			return res, nil
		}
		budget := min(cfg.RoundEvals, remaining)
		iters := max(1, budget/(2*cfg.Population))

		mcfg, err := newMayflyConfig(variant, cfg.Population, len(bounds), iters)
		if err != nil {
			return nil, err
		}
		mcfg.Rand = rand.New(rand.NewSource(cfg.Seed + int64(round)*7919))
		mcfg.ObjectiveFunc = func(pos []float64) float64 {
			st.mu.Lock()
			if st.evals >= cfg.MaxEvaluations || ctx.Err() != nil {
				p := penalty()
				st.mu.Unlock()
				return p
			}
			st.evals++
			st.mu.Unlock()

			g := fromNormalized(pos, bounds)
			score, err := scorer.ScoreOne(context.WithoutCancel(ctx), g)

			st.mu.Lock()
			defer st.mu.Unlock()
			if err != nil {
				st.failures++
				return penalty()
			}
			cost := score
			if dir == ga.Maximize {
				cost = 1 - score
			}
			if st.best == nil || ga.Better(dir, score, st.bestFitness) {
				st.best = g
				st.bestFitness = score
				st.bestCost = cost
			}
			return cost
		}

		if _, err := runMayfly(mcfg); err != nil {
			return nil, fmt.Errorf("mayfly round %d: %w", round, err)
		}
		res.Iterations = round
		st.mu.Lock()
		res.History = append(res.History, st.bestFitness)
		step := Step{Iteration: round, Evaluations: st.evals, BestFitness: st.bestFitness, Best: st.best.Clone()}
		st.mu.Unlock()
		if cfg.Observer != nil {
			cfg.Observer(step)
		}
	}
}

func (st *mayflyState) fill(res *Result) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.best != nil {
		res.Best = st.best.Clone()
	}
	res.BestFitness = st.bestFitness
	res.Evaluations = st.evals
	res.Failures = st.failures
}

// fromNormalized maps a position in [0,1]^n onto bounds.
func fromNormalized(pos []float64, bounds ga.Bounds) ga.Genome {
	g := make(ga.Genome, len(bounds))
	for i, b := range bounds {
		x := 0.0
		if i < len(pos) {
			x = pos[i]
		}
		if x < 0 {
			x = 0
		} else if x > 1 {
			x = 1
		}
		g[i] = b.Clamp(b.Min + x*b.Range())
	}
	return g
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported mayfly variant %q (valid: %s)", variant, strings.Join(MayflyVariants, ", "))
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
