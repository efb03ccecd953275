// Package analysis implements the waveform distance metrics used as fitness
// functions.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cwbudde/algo-synthga/waveform"
)

var (
	ErrEmptyInput    = errors.New("analysis: empty input")
	ErrBadSampleRate = errors.New("analysis: sample rate must be > 0")
	ErrUnknownMetric = errors.New("analysis: unknown metric")
)

// Metric measures how far a candidate signal is from a target signal.
// Distances are >= 0 and 0 means identical. Implementations must be safe for
// concurrent use.
type Metric interface {
	Name() string
	Distance(candidate, target []float64, sampleRate int) (float64, error)
}

// DefaultSimilarityScale is the similarity scale of metrics that do not
// declare their own.
const DefaultSimilarityScale = 1000

// Scaled is implemented by metrics with a typical distance magnitude for the
// similarity transform.
type Scaled interface {
	SimilarityScale() float64
}

// SimilarityScale returns the scale m declares, or DefaultSimilarityScale.
func SimilarityScale(m Metric) float64 {
	if s, ok := m.(Scaled); ok {
		if v := s.SimilarityScale(); v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}
	return DefaultSimilarityScale
}

// SSE is the sum of squared sample differences after zero-padding the shorter
// signal.
type SSE struct{}

func (SSE) Name() string { return "sse" }

func (SSE) SimilarityScale() float64 { return 500 }

func (SSE) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	return sumSquaredDiff(waveform.Align(candidate, target)), nil
}

// NormalizedSSE divides SSE by the target energy. A silent target falls back
// to plain SSE.
type NormalizedSSE struct{}

func (NormalizedSSE) Name() string { return "nsse" }

func (NormalizedSSE) SimilarityScale() float64 { return 1 }

func (NormalizedSSE) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	sse := sumSquaredDiff(waveform.Align(candidate, target))
	var energy float64
	for _, v := range target {
		energy += v * v
	}
	if energy <= 1e-12 {
		return sse, nil
	}
	return sse / energy, nil
}

// Euclidean is sqrt(SSE).
type Euclidean struct{}

func (Euclidean) Name() string { return "euclidean" }

func (Euclidean) SimilarityScale() float64 { return 500 }

func (Euclidean) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	return math.Sqrt(sumSquaredDiff(waveform.Align(candidate, target))), nil
}

var metricFactories = map[string]func() Metric{
	"sse":       func() Metric { return SSE{} },
	"nsse":      func() Metric { return NormalizedSSE{} },
	"euclidean": func() Metric { return Euclidean{} },
	"spectral":  func() Metric { return SpectralMSE{FrameSize: DefaultSpectralFrame} },
	"composite": func() Metric { return NewComposite() },
	"mfcc-dtw":  func() Metric { return NewMFCCDTW() },
}

// ParseMetric returns the metric registered under name (case-insensitive).
func ParseMetric(name string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	f, ok := metricFactories[key]
	if !ok {
		return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownMetric, name, strings.Join(MetricNames(), ", "))
	}
	return f(), nil
}

// MetricNames lists the registered metric names in sorted order.
func MetricNames() []string {
	names := make([]string, 0, len(metricFactories))
	for k := range metricFactories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func checkInputs(candidate, target []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return ErrBadSampleRate
	}
	if len(candidate) == 0 || len(target) == 0 {
		return ErrEmptyInput
	}
	return nil
}

func sumSquaredDiff(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
