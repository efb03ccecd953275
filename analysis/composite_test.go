package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-synthga/waveform"
)

func wave(t *testing.T, x []float64, sr int) waveform.Waveform {
	t.Helper()
	w, err := waveform.New(x, sr)
	if err != nil {
		t.Fatalf("waveform.New: %v", err)
	}
	return w
}

func TestCompositeIdenticalSignalsScoreZero(t *testing.T) {
	sr := 48000
	x := wave(t, makeDecaySine(sr, 440, 1.0, 0.7), sr)
	b, err := Compare(x, x)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if b.Score > 1e-12 || b.LagSamples != 0 {
		t.Fatalf("identical signals: score=%g lag=%d", b.Score, b.LagSamples)
	}
	if b.Similarity() != math.Exp(-4*b.Score) || b.Similarity() < 0.999 {
		t.Fatalf("similarity=%f", b.Similarity())
	}
	if b.AlignedFrames == 0 || b.TargetFrames != x.Len() {
		t.Fatalf("frame counts: %+v", b)
	}
}

func TestCompositeIgnoresGain(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440, 1.0, 0.7)
	quiet := make([]float64, len(x))
	for i, v := range x {
		quiet[i] = 0.3 * v
	}
	d, err := NewComposite().Distance(quiet, x, sr)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d > 1e-6 {
		t.Fatalf("scaled copy distance = %g, want ~0", d)
	}
}

func TestCompositeRanksCloserCandidateLower(t *testing.T) {
	sr := 48000
	target := wave(t, makeDecaySine(sr, 440, 1.0, 0.7), sr)
	near := wave(t, makeDecaySine(sr, 440, 1.0, 0.6), sr)
	far := wave(t, makeDecaySine(sr, 1000, 0.6, 0.2), sr)

	bn, err := Compare(target, near)
	if err != nil {
		t.Fatalf("Compare near: %v", err)
	}
	bf, err := Compare(target, far)
	if err != nil {
		t.Fatalf("Compare far: %v", err)
	}
	if bn.Score >= bf.Score {
		t.Fatalf("near score %f >= far score %f", bn.Score, bf.Score)
	}
	if bn.Score > 0.25 {
		t.Fatalf("near score %f too high", bn.Score)
	}
	if bf.DecayDiffDB <= bn.DecayDiffDB {
		t.Fatalf("decay diff near=%f far=%f", bn.DecayDiffDB, bf.DecayDiffDB)
	}
}

func TestCompositeWeightsSelectTerms(t *testing.T) {
	sr := 48000
	target := makeDecaySine(sr, 440, 1.0, 0.5)
	sameDecay := makeDecaySine(sr, 1000, 1.0, 0.5)
	sameFreq := makeDecaySine(sr, 440, 1.0, 0.45)

	decayOnly := Composite{Weights: CompositeWeights{Decay: 1}}
	d, err := decayOnly.Distance(sameDecay, target, sr)
	if err != nil {
		t.Fatalf("decay-only: %v", err)
	}
	if d > 0.05 {
		t.Fatalf("decay-only distance for equal decay = %f", d)
	}

	spectrumOnly := Composite{Weights: CompositeWeights{Spectrum: 1}}
	dFar, err := spectrumOnly.Distance(sameDecay, target, sr)
	if err != nil {
		t.Fatalf("spectrum-only: %v", err)
	}
	dNear, err := spectrumOnly.Distance(sameFreq, target, sr)
	if err != nil {
		t.Fatalf("spectrum-only: %v", err)
	}
	if dFar <= dNear || dFar < 0.05 {
		t.Fatalf("spectrum-only distances: other pitch=%f same pitch=%f", dFar, dNear)
	}
}

func TestCompositeZeroValueUsesDefaultWeights(t *testing.T) {
	sr := 16000
	a := makeDecaySine(sr, 300, 0.5, 0.3)
	b := makeDecaySine(sr, 500, 0.5, 0.2)
	d0, err := Composite{}.Distance(b, a, sr)
	if err != nil {
		t.Fatalf("zero value: %v", err)
	}
	d1, err := NewComposite().Distance(b, a, sr)
	if err != nil {
		t.Fatalf("NewComposite: %v", err)
	}
	if d0 != d1 {
		t.Fatalf("zero value %f != default %f", d0, d1)
	}
}

func TestCompositeSilence(t *testing.T) {
	sr := 8000
	d, err := NewComposite().Distance(make([]float64, 1000), make([]float64, 2000), sr)
	if err != nil || d != 0 {
		t.Fatalf("silent vs silent: d=%f err=%v", d, err)
	}
	d, err = NewComposite().Distance(make([]float64, 1000), makeDecaySine(sr, 440, 0.5, 0.2), sr)
	if err != nil || d != 1 {
		t.Fatalf("silent vs tone: d=%f err=%v", d, err)
	}
}

func TestCompositeShortSignalsUseTimeTerm(t *testing.T) {
	x := []float64{1, 0.5, 0.25}
	d, err := NewComposite().Distance(x, x, 48000)
	if err != nil || d != 0 {
		t.Fatalf("short identical: d=%f err=%v", d, err)
	}
	d, err = NewComposite().Distance([]float64{1, -0.5, 0.25}, x, 48000)
	if err != nil || d <= 0 {
		t.Fatalf("short different: d=%f err=%v", d, err)
	}
}

func TestCompositeRejectsBadInput(t *testing.T) {
	sr := 8000
	x := wave(t, makeDecaySine(sr, 440, 0.2, 0.1), sr)
	y := wave(t, makeDecaySine(16000, 440, 0.2, 0.1), 16000)
	if _, err := Compare(x, y); !errors.Is(err, ErrBadSampleRate) {
		t.Fatalf("rate mismatch error = %v", err)
	}

	bad := Composite{Weights: CompositeWeights{Time: -1, Spectrum: 1}}
	if _, err := bad.Distance(x.Samples, x.Samples, sr); err == nil {
		t.Fatalf("expected error for negative weight")
	}
	nan := Composite{Weights: CompositeWeights{Time: math.NaN()}}
	if _, err := nan.Distance(x.Samples, x.Samples, sr); err == nil {
		t.Fatalf("expected error for NaN weight")
	}
}

func TestBestLagFindsShift(t *testing.T) {
	const n = 8192
	tests := []struct {
		name  string
		shift int
	}{
		{"candidate early", 237},
		{"candidate late", -191},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := randomSignal(n, 7)
			cand := make([]float64, n)
			if tt.shift >= 0 {
				copy(cand, ref[tt.shift:])
			} else {
				copy(cand[-tt.shift:], ref)
			}
			got, err := bestLag(ref, cand, 600)
			if err != nil {
				t.Fatalf("bestLag: %v", err)
			}
			if got != tt.shift {
				t.Fatalf("bestLag = %d, want %d", got, tt.shift)
			}
		})
	}
}

func TestDecayRateOfExponential(t *testing.T) {
	// exp(-t/tau) falls 20*log10(e)/tau dB per second.
	hop := 0.01
	tau := 0.5
	env := make([]float64, 100)
	for i := range env {
		env[i] = math.Exp(-float64(i) * hop / tau)
	}
	want := -20 * math.Log10(math.E) / tau
	if got := decayRate(env, hop); math.Abs(got-want) > 1e-6 {
		t.Fatalf("decayRate = %f, want %f", got, want)
	}
	if got := decayRate(env[:5], hop); !math.IsNaN(got) {
		t.Fatalf("short envelope decay = %f, want NaN", got)
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := max(int(float64(sr)*durationSec), 1)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sr)
		out[i] = math.Exp(-t/decaySec) * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}
