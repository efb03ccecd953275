// Package search holds baseline optimizers that share the GA's scorer: a
// step-adaptive hill climber and rounds of the Mayfly algorithm.
package search

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/cwbudde/algo-synthga/ga"
)

// Stop reasons.
const (
	StopMaxIterations   = "max_iterations"
	StopMinStepSize     = "min_step_size"
	StopMaxUnsuccessful = "max_unsuccessful"
	StopMaxEvaluations  = "max_evaluations"
	StopCancelled       = "cancelled"
)

// Result is the outcome of a baseline search.
type Result struct {
	Best        ga.Genome `json:"best"`
	BestFitness float64   `json:"best_fitness"`
	Evaluations int       `json:"evaluations"`
	Failures    int       `json:"failures"`
	Iterations  int       `json:"iterations"`
	Stop        string    `json:"stop"`
	// History holds the best fitness after every iteration (hill climb) or
	// round (Mayfly).
	History []float64 `json:"history"`
}

// Step is the search state after one hill-climb iteration or Mayfly round.
type Step struct {
	Iteration   int
	Evaluations int
	BestFitness float64
	Best        ga.Genome
}

// HillClimbConfig controls HillClimb. Step sizes are fractions of each
// gene's range.
type HillClimbConfig struct {
	InitStepSize    float64 `json:"init_step_size"`
	MinStepSize     float64 `json:"min_step_size"`
	MaxStepSize     float64 `json:"max_step_size"`
	MaxIterations   int     `json:"max_iterations"`
	MaxUnsuccessful int     `json:"max_unsuccessful"`
	// SuccessFactor and FailureFactor scale the step after an accepted or
	// rejected neighbour.
	SuccessFactor float64 `json:"success_factor"`
	FailureFactor float64 `json:"failure_factor"`
	Seed          int64   `json:"seed"`

	// Observer, when set, is called after every iteration.
	Observer func(Step) `json:"-"`
}

func DefaultHillClimbConfig() HillClimbConfig {
	return HillClimbConfig{
		InitStepSize:    1.0,
		MinStepSize:     0.0001,
		MaxStepSize:     2.0,
		MaxIterations:   3000,
		MaxUnsuccessful: 5000,
		SuccessFactor:   1 / 0.95,
		FailureFactor:   1.0,
		Seed:            1,
	}
}

func (c HillClimbConfig) Validate() error {
	if c.InitStepSize <= 0 || c.MinStepSize < 0 || c.MaxStepSize < c.InitStepSize {
		return fmt.Errorf("step sizes must satisfy 0 <= min, 0 < init <= max (got %g/%g/%g)", c.MinStepSize, c.InitStepSize, c.MaxStepSize)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be > 0 (got %d)", c.MaxIterations)
	}
	if c.MaxUnsuccessful <= 0 {
		return fmt.Errorf("max unsuccessful must be > 0 (got %d)", c.MaxUnsuccessful)
	}
	if c.SuccessFactor <= 0 || c.FailureFactor <= 0 {
		return fmt.Errorf("step factors must be > 0")
	}
	return nil
}

// HillClimb starts from a random genome and repeatedly moves every gene to a
// uniform neighbour within +-step*range/2, keeping the neighbour only when
// it scores strictly better.
func HillClimb(ctx context.Context, cfg HillClimbConfig, bounds ga.Bounds, scorer *ga.Scorer) (*Result, error) {
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
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Renders already started finish even when ctx is cancelled.
	rctx := context.WithoutCancel(ctx)
	cur := bounds.Random(rng)
	curScore, err := scorer.ScoreOne(rctx, cur)
	res := &Result{Evaluations: 1}
	if err != nil {
		res.Failures++
	}
	res.Best = cur.Clone()
	res.BestFitness = curScore

	step := cfg.InitStepSize
	unsuccessful := 0
	for {
		switch {
		case ctx.Err() != nil:
			res.Stop = StopCancelled
			return res, ctx.Err()
		case res.Iterations >= cfg.MaxIterations:
			res.Stop = StopMaxIterations
			return res, nil
		case step < cfg.MinStepSize:
			res.Stop = StopMinStepSize
			return res, nil
		case unsuccessful >= cfg.MaxUnsuccessful:
			res.Stop = StopMaxUnsuccessful
			return res, nil
		}

		cand := make(ga.Genome, len(cur))
		for i, b := range bounds {
			cand[i] = ga.CreepValue(rng, cur[i], b, step)
		}
		score, err := scorer.ScoreOne(rctx, cand)
		res.Evaluations++
		if err != nil {
			res.Failures++
		}
		if err == nil && ga.Better(dir, score, curScore) {
			cur, curScore = cand, score
			res.Best = cand.Clone()
			res.BestFitness = score
			step *= cfg.SuccessFactor
			if step > cfg.MaxStepSize {
				step = cfg.MaxStepSize
			}
			unsuccessful = 0
		} else {
			step *= cfg.FailureFactor
			unsuccessful++
		}
		res.Iterations++
		res.History = append(res.History, res.BestFitness)
		if cfg.Observer != nil {
			cfg.Observer(Step{Iteration: res.Iterations, Evaluations: res.Evaluations, BestFitness: res.BestFitness, Best: res.Best.Clone()})
		}
	}
}
