package ga

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Selector picks parent indices from an evaluated population.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, pop Population, dir Direction, n int) ([]int, error)
}

// Tournament draws Size distinct individuals per tournament and keeps the
// best one. Tournaments are independent, so one individual can win many.
type Tournament struct {
	Size int
}

func (Tournament) Name() string { return "tournament" }

func (t Tournament) Select(rng *rand.Rand, pop Population, dir Direction, n int) ([]int, error) {
	if len(pop) == 0 {
		return nil, fmt.Errorf("tournament: empty population")
	}
	k := t.Size
	if k < 1 {
		return nil, configErr("TournamentSize", fmt.Sprintf("must be >= 1 (got %d)", k))
	}
	if k > len(pop) {
		k = len(pop)
	}
	idx := make([]int, len(pop))
	for i := range idx {
		idx[i] = i
	}
	out := make([]int, n)
	for s := range out {
		// Partial Fisher-Yates: the first k entries are a uniform sample
		// without replacement.
		for j := 0; j < k; j++ {
			r := j + rng.Intn(len(idx)-j)
			idx[j], idx[r] = idx[r], idx[j]
		}
		best := idx[0]
		for _, c := range idx[1:k] {
			if Better(dir, pop[c].Score, pop[best].Score) {
				best = c
			}
		}
		out[s] = best
	}
	return out, nil
}

// Roulette selects proportionally to fitness. When minimizing the weight of
// a score s is 1/(1+s). A population with zero or non-finite total weight is
// sampled uniformly.
type Roulette struct{}

func (Roulette) Name() string { return "roulette" }

func (Roulette) Select(rng *rand.Rand, pop Population, dir Direction, n int) ([]int, error) {
	if len(pop) == 0 {
		return nil, fmt.Errorf("roulette: empty population")
	}
	weights := make([]float64, len(pop))
	var total float64
	for i, ind := range pop {
		w := rouletteWeight(ind.Score, dir)
		weights[i] = w
		total += w
	}
	out := make([]int, n)
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		for i := range out {
			out[i] = rng.Intn(len(pop))
		}
		return out, nil
	}
	for i := range out {
		r := rng.Float64() * total
		pick := len(weights) - 1
		var acc float64
		for j, w := range weights {
			acc += w
			if r < acc {
				pick = j
				break
			}
		}
		out[i] = pick
	}
	return out, nil
}

func rouletteWeight(score float64, dir Direction) float64 {
	if !finite(score) || score < 0 {
		return 0
	}
	if dir == Maximize {
		return score
	}
	if score >= math.MaxFloat64 {
		return 0
	}
	return 1 / (1 + score)
}

// ParseSelector returns the selection strategy registered under name.
func ParseSelector(name string, tournamentSize int) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tournament", "":
		if tournamentSize < 1 {
			return nil, configErr("TournamentSize", fmt.Sprintf("must be >= 1 (got %d)", tournamentSize))
		}
		return Tournament{Size: tournamentSize}, nil
	case "roulette":
		return Roulette{}, nil
	default:
		return nil, configErr("Selection", fmt.Sprintf("unknown selection %q (valid: tournament, roulette)", name))
	}
}
