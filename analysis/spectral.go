package analysis

import (
	"fmt"
	"math"
	"sync"

	dspspectrum "github.com/cwbudde/algo-dsp/dsp/spectrum"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/cwbudde/algo-synthga/waveform"
)

const (
	// DefaultSpectralFrame matches the 16384-point analysis frame used for
	// frequency-domain fitness.
	DefaultSpectralFrame = 16384
	minSpectralFrame     = 64
)

// SpectralMSE is the mean squared error between the averaged magnitude
// spectra of candidate and target. Signals are zero-padded to a common
// length and cut into Hann-windowed frames with 50% overlap, so every sample
// contributes. Signals shorter than FrameSize use a smaller power-of-two
// frame.
type SpectralMSE struct {
	FrameSize int
}

func (SpectralMSE) Name() string { return "spectral" }

func (SpectralMSE) SimilarityScale() float64 { return 1000 }

func (m SpectralMSE) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	a, b := waveform.Align(candidate, target)

	size := m.FrameSize
	if size <= 0 {
		size = DefaultSpectralFrame
	}
	size = floorPow2(size)
	if fit := nextPow2(len(a)); fit < size {
		size = fit
	}
	if size < minSpectralFrame {
		size = minSpectralFrame
	}

	sa, err := averagedSpectrum(a, size)
	if err != nil {
		return 0, err
	}
	sb, err := averagedSpectrum(b, size)
	if err != nil {
		return 0, err
	}
	var sum float64
	for k := range sa {
		d := sa[k] - sb[k]
		sum += d * d
	}
	return sum / float64(len(sa)), nil
}

// averagedSpectrum returns |X(k)|/size for k in [0, size/2], averaged over
// all frames of x.
func averagedSpectrum(x []float64, size int) ([]float64, error) {
	hop := size / 2
	bins := size/2 + 1
	out := make([]float64, bins)
	buf := make([]float64, size)
	frames := 0
	for pos := 0; pos == 0 || pos < len(x); pos += hop {
		for i := range buf {
			j := pos + i
			if j < len(x) {
				buf[i] = x[j]
			} else {
				buf[i] = 0
			}
		}
		mag, err := magnitudeFrame(buf, size)
		if err != nil {
			return nil, err
		}
		for k := 0; k < bins; k++ {
			out[k] += mag[k] / float64(size)
		}
		frames++
		if pos+size >= len(x) {
			break
		}
	}
	for k := range out {
		out[k] /= float64(frames)
	}
	return out, nil
}

// magnitudeFrame windows the first size samples of x with a Hann window and
// returns the magnitudes of the size/2+1 real FFT bins.
func magnitudeFrame(x []float64, size int) ([]float64, error) {
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan %d: %w", size, err)
	}
	hann := hannWindow(size)
	buf := make([]float64, size)
	for i := 0; i < size && i < len(x); i++ {
		buf[i] = x[i] * hann[i]
	}
	spec := make([]complex128, size/2+1)
	if err := plan.Forward(spec, buf); err != nil {
		return nil, fmt.Errorf("fft %d: %w", size, err)
	}
	return dspspectrum.Magnitude(spec), nil
}

var hannCache sync.Map // int -> []float64

func hannWindow(size int) []float64 {
	if w, ok := hannCache.Load(size); ok {
		return w.([]float64)
	}
	w := window.Hann(size)
	hannCache.Store(size, w)
	return w
}

func floorPow2(n int) int {
	if n < 1 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// spectralPeak returns the frequency of the strongest bin of x.
func spectralPeak(x []float64, sampleRate int) float64 {
	if len(x) == 0 || sampleRate <= 0 {
		return 0
	}
	size := floorPow2(len(x))
	if size > DefaultSpectralFrame {
		size = DefaultSpectralFrame
	}
	if size < minSpectralFrame {
		return 0
	}
	mag, err := magnitudeFrame(x, size)
	if err != nil {
		return 0
	}
	best := 0
	for k := 1; k < len(mag); k++ {
		if mag[k] > mag[best] {
			best = k
		}
	}
	return float64(best) * float64(sampleRate) / float64(size)
}

// Fundamental estimates the dominant frequency of a waveform in Hz. synth-fit
// records it for the best candidate of every generation.
func Fundamental(w waveform.Waveform) float64 {
	f := spectralPeak(w.Samples, w.SampleRate)
	if math.IsNaN(f) {
		return 0
	}
	return f
}
