package dsp

import (
	"fmt"
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	algofft "github.com/cwbudde/algo-fft"
)

// Biquad implements a second-order IIR filter (no heap allocations in Process)
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32

	x1, x2 float32
	y1, y2 float32
}

// NewBiquad creates a new biquad filter with the given normalised coefficients
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{
		b0: b0,
		b1: b1,
		b2: b2,
		a1: a1,
		a2: a2,
	}
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	output = float32(dspcore.FlushDenormals(float64(output)))

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// ProcessBlock filters x in place.
func (b *Biquad) ProcessBlock(x []float32) {
	for i, v := range x {
		x[i] = b.Process(v)
	}
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass creates an RBJ lowpass biquad. The cutoff is clamped below
// Nyquist and q to a small positive value.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	w0, alpha := rbjParams(cutoff, sampleRate, q)
	cosw0 := math.Cos(w0)
	return normalized(
		(1.0-cosw0)/2.0,
		1.0-cosw0,
		(1.0-cosw0)/2.0,
		1.0+alpha,
		-2.0*cosw0,
		1.0-alpha,
	)
}

// NewHighpass creates an RBJ highpass biquad.
func NewHighpass(cutoff, sampleRate, q float32) *Biquad {
	w0, alpha := rbjParams(cutoff, sampleRate, q)
	cosw0 := math.Cos(w0)
	return normalized(
		(1.0+cosw0)/2.0,
		-(1.0 + cosw0),
		(1.0+cosw0)/2.0,
		1.0+alpha,
		-2.0*cosw0,
		1.0-alpha,
	)
}

func rbjParams(cutoff, sampleRate, q float32) (w0, alpha float64) {
	sr := float64(sampleRate)
	fc := float64(cutoff)
	if fc < 1 {
		fc = 1
	}
	if nyq := 0.49 * sr; fc > nyq {
		fc = nyq
	}
	qq := float64(q)
	if qq < 0.05 {
		qq = 0.05
	}
	w0 = 2.0 * math.Pi * fc / sr
	alpha = math.Sin(w0) / (2.0 * qq)
	return w0, alpha
}

func normalized(b0, b1, b2, a0, a1, a2 float64) *Biquad {
	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// DCBlock removes DC with a one-pole highpass, r close to 1.
func DCBlock(x []float32, r float32) {
	var x1, y1 float32
	for i, v := range x {
		y := v - x1 + r*y1
		x1 = v
		y1 = float32(dspcore.FlushDenormals(float64(y)))
		x[i] = y1
	}
}

// WindowedSincLowpass designs a Blackman-windowed sinc lowpass FIR with the
// given odd number of taps and unity DC gain.
func WindowedSincLowpass(cutoff, sampleRate float64, taps int) ([]float32, error) {
	if taps < 3 || taps%2 == 0 {
		return nil, fmt.Errorf("fir taps must be odd and >= 3 (got %d)", taps)
	}
	if sampleRate <= 0 || cutoff <= 0 || cutoff >= sampleRate/2 {
		return nil, fmt.Errorf("fir cutoff %.2f Hz outside (0, %.2f)", cutoff, sampleRate/2)
	}
	fc := cutoff / sampleRate
	m := float64(taps - 1)
	h := make([]float64, taps)
	var sum float64
	for i := range h {
		x := float64(i) - m/2
		var s float64
		if x == 0 {
			s = 2 * math.Pi * fc
		} else {
			s = math.Sin(2*math.Pi*fc*x) / x
		}
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/m) + 0.08*math.Cos(4*math.Pi*float64(i)/m)
		h[i] = s * w
		sum += h[i]
	}
	out := make([]float32, taps)
	for i := range h {
		out[i] = float32(h[i] / sum)
	}
	return out, nil
}

// WindowedSincHighpass is the spectral inversion of WindowedSincLowpass.
func WindowedSincHighpass(cutoff, sampleRate float64, taps int) ([]float32, error) {
	h, err := WindowedSincLowpass(cutoff, sampleRate, taps)
	if err != nil {
		return nil, err
	}
	for i := range h {
		h[i] = -h[i]
	}
	h[taps/2]++
	return h, nil
}

// ApplyFIR convolves x with kernel using FFT convolution and returns the
// output trimmed to len(x), compensating the kernel's group delay.
func ApplyFIR(x []float32, kernel []float32) ([]float32, error) {
	if len(x) == 0 || len(kernel) == 0 {
		return append([]float32(nil), x...), nil
	}
	full := make([]float32, len(x)+len(kernel)-1)
	if err := algofft.ConvolveReal(full, x, kernel); err != nil {
		return nil, fmt.Errorf("fir convolve: %w", err)
	}
	delay := (len(kernel) - 1) / 2
	out := make([]float32, len(x))
	copy(out, full[delay:])
	return out, nil
}
