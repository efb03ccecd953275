package ga

import (
	"fmt"
	"math/rand"
	"strings"
)

// Crossover combines two parents into two children. Parents are not
// modified. Children may leave the bounds; the caller clamps them.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b Genome) (Genome, Genome)
}

// Blend takes a random weighted average per gene: child1 = r*a + (1-r)*b,
// child2 = (1-r)*a + r*b.
type Blend struct{}

func (Blend) Name() string { return "blend" }

func (Blend) Cross(rng *rand.Rand, a, b Genome) (Genome, Genome) {
	c1 := make(Genome, len(a))
	c2 := make(Genome, len(a))
	for i := range a {
		r := rng.Float64()
		c1[i] = r*a[i] + (1-r)*b[i]
		c2[i] = (1-r)*a[i] + r*b[i]
	}
	return c1, c2
}

// Uniform swaps each gene with probability 0.5.
type Uniform struct{}

func (Uniform) Name() string { return "uniform" }

func (Uniform) Cross(rng *rand.Rand, a, b Genome) (Genome, Genome) {
	c1 := a.Clone()
	c2 := b.Clone()
	for i := range c1 {
		if rng.Intn(2) == 1 {
			c1[i], c2[i] = c2[i], c1[i]
		}
	}
	return c1, c2
}

// SinglePoint swaps the tails after one random cut.
type SinglePoint struct{}

func (SinglePoint) Name() string { return "single-point" }

func (SinglePoint) Cross(rng *rand.Rand, a, b Genome) (Genome, Genome) {
	c1 := a.Clone()
	c2 := b.Clone()
	if len(a) < 2 {
		return c1, c2
	}
	cut := 1 + rng.Intn(len(a)-1)
	for i := cut; i < len(a); i++ {
		c1[i], c2[i] = c2[i], c1[i]
	}
	return c1, c2
}

// TwoPoint swaps the segment between two random cuts.
type TwoPoint struct{}

func (TwoPoint) Name() string { return "two-point" }

func (TwoPoint) Cross(rng *rand.Rand, a, b Genome) (Genome, Genome) {
	c1 := a.Clone()
	c2 := b.Clone()
	if len(a) < 2 {
		return c1, c2
	}
	i := rng.Intn(len(a))
	j := rng.Intn(len(a))
	if i > j {
		i, j = j, i
	}
	for k := i; k <= j; k++ {
		c1[k], c2[k] = c2[k], c1[k]
	}
	return c1, c2
}

// ParseCrossover returns the crossover registered under name.
func ParseCrossover(name string) (Crossover, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blend", "":
		return Blend{}, nil
	case "uniform":
		return Uniform{}, nil
	case "single-point", "single", "one-point":
		return SinglePoint{}, nil
	case "two-point", "two":
		return TwoPoint{}, nil
	default:
		return nil, configErr("Crossover", fmt.Sprintf("unknown crossover %q (valid: blend, uniform, single-point, two-point)", name))
	}
}
