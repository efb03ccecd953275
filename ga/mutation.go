package ga

import (
	"fmt"
	"math/rand"
	"strings"
)

// Mutator perturbs genes independently with probability rate. The returned
// genome is a new slice that always lies inside bounds.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, g Genome, bounds Bounds, rate float64) Genome
}

// Gaussian adds N(0, Sigma*range) noise.
type Gaussian struct {
	Sigma float64
}

func (Gaussian) Name() string { return "gaussian" }

func (m Gaussian) Mutate(rng *rand.Rand, g Genome, bounds Bounds, rate float64) Genome {
	out := bounds.Clamp(g)
	for i, b := range bounds {
		if rng.Float64() >= rate {
			continue
		}
		sigma := m.Sigma * b.Range()
		if b.Integer && sigma < 0.5 {
			sigma = 0.5
		}
		out[i] = b.Clamp(out[i] + rng.NormFloat64()*sigma)
	}
	return out
}

// UniformReset replaces a gene with a fresh uniform draw.
type UniformReset struct{}

func (UniformReset) Name() string { return "uniform" }

func (UniformReset) Mutate(rng *rand.Rand, g Genome, bounds Bounds, rate float64) Genome {
	out := bounds.Clamp(g)
	for i, b := range bounds {
		if rng.Float64() < rate {
			out[i] = b.Sample(rng)
		}
	}
	return out
}

// Creep moves a gene uniformly within +-Step*range/2 of its value.
type Creep struct {
	Step float64
}

func (Creep) Name() string { return "creep" }

func (m Creep) Mutate(rng *rand.Rand, g Genome, bounds Bounds, rate float64) Genome {
	out := bounds.Clamp(g)
	for i, b := range bounds {
		if rng.Float64() < rate {
			out[i] = CreepValue(rng, out[i], b, m.Step)
		}
	}
	return out
}

// CreepValue draws a neighbour of v within +-step*range/2, clamped.
func CreepValue(rng *rand.Rand, v float64, b Bound, step float64) float64 {
	half := b.Range() * step / 2
	return b.Clamp(v - half + rng.Float64()*2*half)
}

// ParseMutator returns the mutation registered under name. sigma is the
// gaussian sigma or creep step as a fraction of each gene's range.
func ParseMutator(name string, sigma float64) (Mutator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian", "":
		return Gaussian{Sigma: sigma}, nil
	case "uniform", "reset":
		return UniformReset{}, nil
	case "creep":
		return Creep{Step: sigma}, nil
	default:
		return nil, configErr("Mutation", fmt.Sprintf("unknown mutation %q (valid: gaussian, uniform, creep)", name))
	}
}
