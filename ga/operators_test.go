package ga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationStaysInBounds(t *testing.T) {
	bounds := Bounds{
		{Min: -1, Max: 1},
		{Min: 0, Max: 100, Integer: true},
		{Min: 3, Max: 3},
	}
	mutators := []Mutator{Gaussian{Sigma: 5}, UniformReset{}, Creep{Step: 3}}
	rng := newRand(9)
	for _, m := range mutators {
		t.Run(m.Name(), func(t *testing.T) {
			g := Genome{0.99, 99, 3}
			for i := 0; i < 1000; i++ {
				g = m.Mutate(rng, g, bounds, 1)
				require.True(t, bounds.Contains(g), "mutated genome %v out of bounds", g)
			}
		})
	}
}

func TestMutationRateZeroKeepsGenome(t *testing.T) {
	bounds := unitBounds(4)
	g := Genome{0.1, 0.2, 0.3, 0.4}
	out := Gaussian{Sigma: 0.5}.Mutate(newRand(1), g, bounds, 0)
	assert.Equal(t, g, out)
	out[0] = 0.9
	assert.Equal(t, 0.1, g[0], "mutator must not alias its input")
}

func TestCrossoverPreservesGenePool(t *testing.T) {
	a := Genome{0, 0, 0, 0, 0, 0}
	b := Genome{1, 1, 1, 1, 1, 1}
	for _, x := range []Crossover{Uniform{}, SinglePoint{}, TwoPoint{}} {
		t.Run(x.Name(), func(t *testing.T) {
			rng := newRand(5)
			for i := 0; i < 50; i++ {
				c1, c2 := x.Cross(rng, a, b)
				require.Len(t, c1, len(a))
				for j := range c1 {
					assert.Equal(t, 1.0, c1[j]+c2[j], "gene %d not swapped as a pair", j)
				}
			}
			assert.Equal(t, Genome{0, 0, 0, 0, 0, 0}, a)
		})
	}
}

func TestBlendStaysBetweenParents(t *testing.T) {
	a := Genome{-1, 10}
	b := Genome{1, 20}
	rng := newRand(2)
	for i := 0; i < 100; i++ {
		c1, c2 := Blend{}.Cross(rng, a, b)
		for j := range a {
			assert.GreaterOrEqual(t, c1[j], a[j])
			assert.LessOrEqual(t, c1[j], b[j])
			assert.InDelta(t, a[j]+b[j], c1[j]+c2[j], 1e-9)
		}
	}
}

func TestTournamentPicksBestOfFullField(t *testing.T) {
	pop := Population{
		{Score: 5, Evaluated: true},
		{Score: 1, Evaluated: true},
		{Score: 3, Evaluated: true},
	}
	idx, err := Tournament{Size: 3}.Select(newRand(1), pop, Minimize, 10)
	require.NoError(t, err)
	for _, i := range idx {
		assert.Equal(t, 1, i)
	}
	idx, err = Tournament{Size: 3}.Select(newRand(1), pop, Maximize, 4)
	require.NoError(t, err)
	for _, i := range idx {
		assert.Equal(t, 0, i)
	}
}

func TestTournamentSizeOneIsUniform(t *testing.T) {
	pop := make(Population, 4)
	for i := range pop {
		pop[i] = Individual{Score: float64(i), Evaluated: true}
	}
	idx, err := Tournament{Size: 1}.Select(newRand(7), pop, Minimize, 400)
	require.NoError(t, err)
	counts := make([]int, 4)
	for _, i := range idx {
		counts[i]++
	}
	for i, c := range counts {
		assert.Greater(t, c, 50, "slot %d picked %d times", i, c)
	}
}

func TestRouletteFavoursFitter(t *testing.T) {
	pop := Population{
		{Score: 0, Evaluated: true},
		{Score: 99, Evaluated: true},
	}
	idx, err := Roulette{}.Select(newRand(4), pop, Minimize, 1000)
	require.NoError(t, err)
	var first int
	for _, i := range idx {
		if i == 0 {
			first++
		}
	}
	// Weights 1 and 0.01.
	assert.Greater(t, first, 950)
}

func TestRouletteUniformFallback(t *testing.T) {
	pop := Population{{Score: 0}, {Score: 0}}
	idx, err := Roulette{}.Select(newRand(4), pop, Maximize, 200)
	require.NoError(t, err)
	var first int
	for _, i := range idx {
		if i == 0 {
			first++
		}
	}
	assert.Greater(t, first, 50)
	assert.Less(t, first, 150)
}

func TestParseOperators(t *testing.T) {
	_, err := ParseSelector("roulette", 0)
	require.NoError(t, err)
	_, err = ParseSelector("tournament", 0)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = ParseSelector("rank", 3)
	assert.ErrorIs(t, err, ErrConfiguration)

	x, err := ParseCrossover("two-point")
	require.NoError(t, err)
	assert.Equal(t, "two-point", x.Name())
	_, err = ParseCrossover("pmx")
	assert.ErrorIs(t, err, ErrConfiguration)

	m, err := ParseMutator("creep", 0.2)
	require.NoError(t, err)
	assert.Equal(t, Creep{Step: 0.2}, m)
	_, err = ParseMutator("swap", 0.2)
	assert.ErrorIs(t, err, ErrConfiguration)
}
