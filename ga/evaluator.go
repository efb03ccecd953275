package ga

import (
	"errors"
	"fmt"
	"math"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"

	"github.com/cwbudde/algo-synthga/analysis"
	"github.com/cwbudde/algo-synthga/waveform"
)

// Evaluator scores rendered waveforms against a fixed target.
// It is safe for concurrent use.
type Evaluator struct {
	target    waveform.Waveform
	metric    analysis.Metric
	direction Direction
	scale     float64
}

// NewEvaluator copies target and validates it. scale is only used for
// Maximize and maps distances to similarities (see Similarity); 0 selects
// analysis.SimilarityScale(metric).
func NewEvaluator(target waveform.Waveform, metric analysis.Metric, dir Direction, scale float64) (*Evaluator, error) {
	if metric == nil {
		return nil, configErr("Metric", "metric is nil")
	}
	if err := target.Validate(); err != nil {
		return nil, configErr("Target", err.Error())
	}
	if dir != Minimize && dir != Maximize {
		return nil, configErr("Direction", fmt.Sprintf("unknown direction %d", int(dir)))
	}
	if !finite(scale) || scale < 0 {
		return nil, configErr("SimilarityScale", fmt.Sprintf("must be >= 0 (got %g)", scale))
	}
	if scale == 0 {
		scale = analysis.SimilarityScale(metric)
	}
	return &Evaluator{
		target:    target.Clone(),
		metric:    metric,
		direction: dir,
		scale:     scale,
	}, nil
}

func (e *Evaluator) Direction() Direction { return e.direction }

func (e *Evaluator) Metric() analysis.Metric { return e.metric }

// Scale is the similarity scale in effect.
func (e *Evaluator) Scale() float64 { return e.scale }

// Target returns a copy of the target waveform.
func (e *Evaluator) Target() waveform.Waveform { return e.target.Clone() }

// Worst is the score assigned to failed evaluations.
func (e *Evaluator) Worst() float64 { return Worst(e.direction) }

// Distance returns the raw metric distance of w to the target. The candidate
// is resampled to the target rate when needed and the shorter signal is
// zero-padded to the length of the longer one.
func (e *Evaluator) Distance(w waveform.Waveform) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	samples := w.Samples
	if w.SampleRate != e.target.SampleRate {
		r, err := dspresample.NewForRates(
			float64(w.SampleRate),
			float64(e.target.SampleRate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return 0, fmt.Errorf("resample %d -> %d: %w", w.SampleRate, e.target.SampleRate, err)
		}
		samples = r.Process(samples)
		if len(samples) == 0 {
			return 0, fmt.Errorf("resample %d -> %d: %w", w.SampleRate, e.target.SampleRate, waveform.ErrEmpty)
		}
	}
	cand, ref := waveform.Align(samples, e.target.Samples)
	d, err := e.metric.Distance(cand, ref, e.target.SampleRate)
	if err != nil {
		return 0, fmt.Errorf("metric %s: %w", e.metric.Name(), err)
	}
	if !finite(d) {
		return 0, fmt.Errorf("metric %s: %w", e.metric.Name(), errNonFiniteDistance)
	}
	if d < 0 {
		return 0, fmt.Errorf("metric %s: negative distance %g", e.metric.Name(), d)
	}
	return d, nil
}

// Evaluate returns the fitness score of w.
func (e *Evaluator) Evaluate(w waveform.Waveform) (float64, error) {
	d, err := e.Distance(w)
	if err != nil {
		return e.Worst(), err
	}
	if e.direction == Maximize {
		return Similarity(d, e.scale), nil
	}
	return d, nil
}

var errNonFiniteDistance = errors.New("non-finite distance")

// Similarity maps a distance to (0, 1]: 2*sigmoid(-exp(log10(d/scale))).
// A zero distance is a perfect match.
func Similarity(d, scale float64) float64 {
	if d <= 0 {
		return 1
	}
	x := -math.Exp(math.Log10(d / scale))
	return 2 / (1 + math.Exp(-x))
}

// Worst is the worst possible score for dir.
func Worst(dir Direction) float64 {
	if dir == Maximize {
		return 0
	}
	return math.MaxFloat64
}

// Better reports whether a is strictly better than b.
func Better(dir Direction, a, b float64) bool {
	if dir == Maximize {
		return a > b
	}
	return a < b
}

// Reached reports whether score meets target.
func Reached(dir Direction, score, target float64) bool {
	if dir == Maximize {
		return score >= target
	}
	return score <= target
}
