// Package waveform holds the sample buffers exchanged between the renderer,
// the fitness evaluator and the file I/O helpers.
package waveform

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmpty         = errors.New("waveform: no samples")
	ErrBadSampleRate = errors.New("waveform: sample rate must be > 0")
	ErrNonFinite     = errors.New("waveform: non-finite sample")
)

// Waveform is a mono signal with a known sample rate.
// Treat Samples as read-only once a waveform is shared.
type Waveform struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// New copies samples into a new waveform and validates it.
func New(samples []float64, sampleRate int) (Waveform, error) {
	w := Waveform{
		Samples:    append([]float64(nil), samples...),
		SampleRate: sampleRate,
	}
	if err := w.Validate(); err != nil {
		return Waveform{}, err
	}
	return w, nil
}

// FromFloat32 converts a float32 render buffer.
func FromFloat32(samples []float32, sampleRate int) Waveform {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return Waveform{Samples: out, SampleRate: sampleRate}
}

// Zeros returns n samples of silence.
func Zeros(n int, sampleRate int) Waveform {
	if n < 0 {
		n = 0
	}
	return Waveform{Samples: make([]float64, n), SampleRate: sampleRate}
}

func (w Waveform) Len() int {
	return len(w.Samples)
}

// Duration in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Validate checks the sample rate, length and that every sample is finite.
func (w Waveform) Validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w (got %d)", ErrBadSampleRate, w.SampleRate)
	}
	if len(w.Samples) == 0 {
		return ErrEmpty
	}
	if i := FirstNonFinite(w.Samples); i >= 0 {
		return fmt.Errorf("%w at index %d", ErrNonFinite, i)
	}
	return nil
}

// Clone returns a deep copy.
func (w Waveform) Clone() Waveform {
	return Waveform{
		Samples:    append([]float64(nil), w.Samples...),
		SampleRate: w.SampleRate,
	}
}

// Energy is the sum of squared samples.
func (w Waveform) Energy() float64 {
	var sum float64
	for _, v := range w.Samples {
		sum += v * v
	}
	return sum
}

// Float32 converts the samples for WAV encoding.
func (w Waveform) Float32() []float32 {
	out := make([]float32, len(w.Samples))
	for i, v := range w.Samples {
		out[i] = float32(v)
	}
	return out
}

// FirstNonFinite returns the index of the first NaN/Inf sample or -1.
func FirstNonFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Align returns a and b extended to a common length. The shorter signal is
// zero-padded at the end; nothing is truncated. Inputs are not modified and
// are returned as-is when lengths already match.
func Align(a []float64, b []float64) ([]float64, []float64) {
	switch {
	case len(a) == len(b):
		return a, b
	case len(a) < len(b):
		return padTo(a, len(b)), b
	default:
		return a, padTo(b, len(a))
	}
}

func padTo(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}
