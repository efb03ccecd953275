package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cwbudde/algo-synthga/analysis"
	"github.com/cwbudde/algo-synthga/ga"
	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/preset"
	"github.com/cwbudde/algo-synthga/search"
	"github.com/cwbudde/algo-synthga/synth"
	"github.com/cwbudde/algo-synthga/waveform"
)

type fitConfig struct {
	settings    *preset.Settings
	target      waveform.Waveform
	algorithm   string
	reportEvery int
	hillClimb   search.HillClimbConfig
	mayfly      search.MayflyConfig
}

type fitResult struct {
	best        ga.Genome
	bestFitness float64
	evaluations int
	failures    int
	cacheHits   int
	generations int
	stop        string
	history     []fitcommon.HistoryRow
	warning     *ga.ConvergenceWarning
	elapsed     float64
}

func newRenderer(s *preset.Settings) (*synth.Additive, error) {
	r, err := synth.NewAdditive(s.Synth, s.Layout)
	if err != nil {
		return nil, err
	}
	r.Base = s.Voice
	return r, nil
}

// fundamentalTracker estimates the dominant frequency of each step's best
// genome. The estimate is reused while the best genome is unchanged.
type fundamentalTracker struct {
	r    *synth.Additive
	last ga.Genome
	hz   float64
}

func (f *fundamentalTracker) estimate(g ga.Genome) float64 {
	if g == nil {
		return 0
	}
	if f.last != nil && slices.Equal(f.last, g) {
		return f.hz
	}
	w, err := f.r.Render(context.Background(), g)
	if err != nil {
		f.last = nil
		return 0
	}
	f.last = g.Clone()
	f.hz = analysis.Fundamental(w)
	return f.hz
}

func newEvaluator(s *preset.Settings, target waveform.Waveform) (*ga.Evaluator, error) {
	m, err := s.NewMetric()
	if err != nil {
		return nil, err
	}
	return ga.NewEvaluator(target, m, s.GA.Direction, s.GA.SimilarityScale)
}

// runFit dispatches to the chosen algorithm. A cancelled run returns its
// partial result together with the context error.
func runFit(ctx context.Context, cfg *fitConfig) (*fitResult, error) {
	s := cfg.settings
	renderer, err := newRenderer(s)
	if err != nil {
		return nil, err
	}
	evaluator, err := newEvaluator(s, cfg.target)
	if err != nil {
		return nil, err
	}

	tracker := &fundamentalTracker{r: renderer}

	switch cfg.algorithm {
	case "ga":
		return runGA(ctx, cfg, renderer, evaluator, tracker)
	case "hillclimb", "mayfly":
		scorer, err := ga.NewScorer(renderer, evaluator, s.GA.Workers, s.GA.EvaluationTimeout)
		if err != nil {
			return nil, err
		}
		var history []fitcommon.HistoryRow
		started := time.Now()
		prevEvals := 0
		observe := func(popSize int) func(search.Step) {
			return func(st search.Step) {
				history = append(history, fitcommon.HistoryRow{
					GenerationStats: ga.GenerationStats{
						Generation:     st.Iteration,
						PopulationSize: popSize,
						Best:           st.BestFitness,
						BestEver:       st.BestFitness,
						Evaluations:    st.Evaluations - prevEvals,
						ElapsedSeconds: time.Since(started).Seconds(),
						BestGenome:     st.Best,
					},
					FundamentalHz: tracker.estimate(st.Best),
				})
				prevEvals = st.Evaluations
			}
		}

		var res *search.Result
		var runErr error
		if cfg.algorithm == "hillclimb" {
			hc := cfg.hillClimb
			hc.Observer = observe(1)
			res, runErr = search.HillClimb(ctx, hc, s.GA.Bounds, scorer)
		} else {
			mc := cfg.mayfly
			mc.Observer = observe(mc.Population)
			res, runErr = search.Mayfly(ctx, mc, s.GA.Bounds, scorer)
		}
		if res == nil {
			return nil, runErr
		}
		fmt.Printf("%s iterations=%d evals=%d best=%.6g fundamental=%.1fHz\n",
			cfg.algorithm, res.Iterations, res.Evaluations, res.BestFitness, tracker.estimate(res.Best))
		return &fitResult{
			best:        res.Best,
			bestFitness: res.BestFitness,
			evaluations: res.Evaluations,
			failures:    res.Failures,
			generations: res.Iterations,
			stop:        res.Stop,
			history:     history,
		}, runErr
	default:
		return nil, fmt.Errorf("unknown algorithm %q (valid: ga, hillclimb, mayfly)", cfg.algorithm)
	}
}

func runGA(ctx context.Context, cfg *fitConfig, r ga.Renderer, e *ga.Evaluator, tracker *fundamentalTracker) (*fitResult, error) {
	every := cfg.reportEvery
	var history []fitcommon.HistoryRow
	observer := func(st ga.GenerationStats) {
		row := fitcommon.HistoryRow{GenerationStats: st, FundamentalHz: tracker.estimate(st.BestGenome)}
		history = append(history, row)
		if st.Generation%every != 0 {
			return
		}
		fmt.Printf("gen=%d best=%.6g mean=%.6g std=%.3g best_ever=%.6g fundamental=%.1fHz failures=%d cache_hits=%d elapsed=%.1fs\n",
			st.Generation, st.Best, st.Mean, st.Std, st.BestEver, row.FundamentalHz, st.Failures, st.CacheHits, st.ElapsedSeconds)
	}
	ctrl, err := ga.NewController(cfg.settings.GA, r, e, ga.WithObserver(observer))
	if err != nil {
		return nil, err
	}
	res, runErr := ctrl.Run(ctx)
	if res == nil {
		return nil, runErr
	}
	if res.LastFailure != nil {
		fmt.Printf("last evaluation failure: %v\n", res.LastFailure)
	}
	return &fitResult{
		best:        res.Best,
		bestFitness: res.BestFitness,
		evaluations: res.Evaluations,
		failures:    res.Failures,
		cacheHits:   res.CacheHits,
		generations: res.Generations,
		stop:        string(res.Outcome),
		history:     history,
		warning:     res.Warning,
	}, runErr
}
