package ga

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Direction tells whether lower or higher scores are better.
type Direction int

const (
	// Minimize treats the score as a distance.
	Minimize Direction = iota
	// Maximize treats the score as a similarity in [0, 1].
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// ParseDirection accepts "minimize"/"min" and "maximize"/"max".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimize", "min", "":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	default:
		return Minimize, configErr("Direction", fmt.Sprintf("unknown direction %q", s))
	}
}

// Config holds every knob of a GA run.
type Config struct {
	PopulationSize int    `json:"population_size"`
	Bounds         Bounds `json:"bounds"`

	CrossoverRate float64 `json:"crossover_rate"`
	Crossover     string  `json:"crossover"`
	MutationRate  float64 `json:"mutation_rate"`
	Mutation      string  `json:"mutation"`
	// MutationSigma is the gaussian sigma or creep step as a fraction of each
	// gene's range.
	MutationSigma  float64 `json:"mutation_sigma"`
	Selection      string  `json:"selection"`
	TournamentSize int     `json:"tournament_size"`
	Elitism        int     `json:"elitism"`
	Immigrants     int     `json:"immigrants"`

	MaxGenerations int `json:"max_generations"`
	// TargetFitness stops the run once the best score reaches it.
	TargetFitness *float64 `json:"target_fitness,omitempty"`
	// StagnationWindow stops the run after that many generations without a
	// strict improvement. 0 disables it.
	StagnationWindow  int           `json:"stagnation_window"`
	EvaluationTimeout time.Duration `json:"evaluation_timeout"`

	Seed    int64 `json:"seed"`
	Workers int   `json:"workers"`

	Direction Direction `json:"direction"`
	// SimilarityScale maps distances to similarities under Maximize. 0 uses
	// the metric's own scale.
	SimilarityScale float64 `json:"similarity_scale"`
	// CacheFitness reuses scores of identical genomes. Disable it for
	// non-deterministic renderers.
	CacheFitness bool `json:"cache_fitness"`
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		CrossoverRate:  0.9,
		Crossover:      "blend",
		MutationRate:   0.1,
		Mutation:       "gaussian",
		MutationSigma:  0.1,
		Selection:      "tournament",
		TournamentSize: 3,
		MaxGenerations: 100,
		Seed:           1,
		Direction:      Minimize,
		CacheFitness:   true,
	}
}

// Validate checks the configuration and returns a *ConfigurationError for
// the first problem found.
func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return configErr("PopulationSize", fmt.Sprintf("must be > 0 (got %d)", c.PopulationSize))
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if err := checkProbability("CrossoverRate", c.CrossoverRate); err != nil {
		return err
	}
	if err := checkProbability("MutationRate", c.MutationRate); err != nil {
		return err
	}
	if !finite(c.MutationSigma) || c.MutationSigma < 0 {
		return configErr("MutationSigma", fmt.Sprintf("must be >= 0 (got %g)", c.MutationSigma))
	}
	if c.TournamentSize < 1 {
		return configErr("TournamentSize", fmt.Sprintf("must be >= 1 (got %d)", c.TournamentSize))
	}
	if c.Elitism < 0 || c.Elitism > c.PopulationSize {
		return configErr("Elitism", fmt.Sprintf("must be in [0, %d] (got %d)", c.PopulationSize, c.Elitism))
	}
	if c.Immigrants < 0 || c.Elitism+c.Immigrants > c.PopulationSize {
		return configErr("Immigrants", fmt.Sprintf("elitism+immigrants must be <= %d (got %d)", c.PopulationSize, c.Elitism+c.Immigrants))
	}
	if c.MaxGenerations <= 0 {
		return configErr("MaxGenerations", fmt.Sprintf("must be > 0 (got %d)", c.MaxGenerations))
	}
	if c.TargetFitness != nil && !finite(*c.TargetFitness) {
		return configErr("TargetFitness", "must be finite")
	}
	if c.StagnationWindow < 0 {
		return configErr("StagnationWindow", fmt.Sprintf("must be >= 0 (got %d)", c.StagnationWindow))
	}
	if c.EvaluationTimeout < 0 {
		return configErr("EvaluationTimeout", fmt.Sprintf("must be >= 0 (got %s)", c.EvaluationTimeout))
	}
	if c.Workers < 0 {
		return configErr("Workers", fmt.Sprintf("must be >= 0 (got %d)", c.Workers))
	}
	if c.Direction != Minimize && c.Direction != Maximize {
		return configErr("Direction", fmt.Sprintf("unknown direction %d", int(c.Direction)))
	}
	if !finite(c.SimilarityScale) || c.SimilarityScale < 0 {
		return configErr("SimilarityScale", fmt.Sprintf("must be >= 0 (got %g)", c.SimilarityScale))
	}
	if _, err := ParseSelector(c.Selection, c.TournamentSize); err != nil {
		return err
	}
	if _, err := ParseCrossover(c.Crossover); err != nil {
		return err
	}
	if _, err := ParseMutator(c.Mutation, c.MutationSigma); err != nil {
		return err
	}
	return nil
}

func checkProbability(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return configErr(field, fmt.Sprintf("must be in [0, 1] (got %g)", v))
	}
	return nil
}
