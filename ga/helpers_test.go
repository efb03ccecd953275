package ga

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-synthga/analysis"
	"github.com/cwbudde/algo-synthga/waveform"
)

const testRate = 1000

// constRenderer renders a constant signal whose level is the mean of the
// genes.
func constRenderer(n int) RenderFunc {
	return func(ctx context.Context, g Genome) (waveform.Waveform, error) {
		var level float64
		for _, v := range g {
			level += v
		}
		level /= float64(len(g))
		s := make([]float64, n)
		for i := range s {
			s[i] = level
		}
		return waveform.Waveform{Samples: s, SampleRate: testRate}, nil
	}
}

var errBroken = errors.New("synth broken")

func failingRenderer() RenderFunc {
	return func(ctx context.Context, g Genome) (waveform.Waveform, error) {
		return waveform.Waveform{}, errBroken
	}
}

func zeroTarget(t *testing.T, n int) waveform.Waveform {
	t.Helper()
	w, err := waveform.New(make([]float64, n), testRate)
	require.NoError(t, err)
	return w
}

func sseEvaluator(t *testing.T, target waveform.Waveform) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(target, analysis.SSE{}, Minimize, 0)
	require.NoError(t, err)
	return e
}

func unitBounds(n int) Bounds {
	bs := make(Bounds, n)
	for i := range bs {
		bs[i] = Bound{Min: 0, Max: 1}
	}
	return bs
}

func testConfig(bounds Bounds) Config {
	cfg := DefaultConfig()
	cfg.Bounds = bounds
	cfg.PopulationSize = 20
	cfg.MaxGenerations = 10
	cfg.Seed = 42
	return cfg
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
