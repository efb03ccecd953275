package ga

import "math"

// Outcome is the reason a run ended.
type Outcome string

const (
	OutcomeTargetReached  Outcome = "target_reached"
	OutcomeStagnated      Outcome = "stagnated"
	OutcomeMaxGenerations Outcome = "max_generations"
	OutcomeCancelled      Outcome = "cancelled"
)

// State is the controller's position in the generation loop.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateEvaluating
	StateBreeding
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateEvaluating:
		return "evaluating"
	case StateBreeding:
		return "breeding"
	case StateTerminated:
		return "terminated"
	default:
		return "idle"
	}
}

// GenerationStats summarises one evaluated generation. Mean and Std are
// taken over the individuals that evaluated successfully.
type GenerationStats struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	Best           float64 `json:"best"`
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	BestEver       float64 `json:"best_ever"`
	Failures       int     `json:"failures"`
	Evaluations    int     `json:"evaluations"`
	CacheHits      int     `json:"cache_hits"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// BestGenome is the fittest individual of this generation, nil when
	// every evaluation failed.
	BestGenome Genome `json:"best_genome,omitempty"`
}

// Result is the outcome of a run. A cancelled run still carries the best
// individual found so far.
type Result struct {
	Best           Genome            `json:"best"`
	BestFitness    float64           `json:"best_fitness"`
	BestGeneration int               `json:"best_generation"`
	Generations    int               `json:"generations"`
	Outcome        Outcome           `json:"outcome"`
	Direction      string            `json:"direction"`
	Failures       int               `json:"failures"`
	Evaluations    int               `json:"evaluations"`
	CacheHits      int               `json:"cache_hits"`
	History        []GenerationStats `json:"history"`

	Warning     *ConvergenceWarning `json:"-"`
	LastFailure *EvaluationFailure  `json:"-"`
}

// generationStats reduces the scores of the successfully evaluated slots of
// pop. With no successes every value is the worst score.
func generationStats(pop Population, dir Direction) (best, mean, std float64) {
	best = Worst(dir)
	var sum, sumSq float64
	n := 0
	for _, ind := range pop {
		if ind.Failed || !ind.Evaluated {
			continue
		}
		if n == 0 || Better(dir, ind.Score, best) {
			best = ind.Score
		}
		sum += ind.Score
		sumSq += ind.Score * ind.Score
		n++
	}
	if n == 0 {
		return Worst(dir), Worst(dir), 0
	}
	mean = sum / float64(n)
	v := sumSq/float64(n) - mean*mean
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	return best, mean, math.Sqrt(v)
}
