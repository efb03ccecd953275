package analysis

import (
	"fmt"
	"math"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-synthga/waveform"
)

const (
	// silenceFloor is the level below which leading samples are skipped.
	silenceFloor = 1e-6
	// minOverlap is the shortest aligned overlap with envelope, spectrum and
	// decay terms. Shorter pairs are scored on the time term alone.
	minOverlap = 256

	envFrame       = 256
	envHop         = 128
	compareFFTSize = 4096
	// Each term is divided by its full-scale value before weighting.
	timeFullScale  = 2.0
	envFullScaleDB = 30.0
	specFullScale  = 30.0
	decayFullScale = 40.0
)

// CompositeWeights sets the contribution of each term of the composite
// distance. Weights are relative: they are divided by their sum.
type CompositeWeights struct {
	Time     float64 `json:"time"`
	Envelope float64 `json:"envelope"`
	Spectrum float64 `json:"spectrum"`
	Decay    float64 `json:"decay"`
}

func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{Time: 0.30, Envelope: 0.25, Spectrum: 0.30, Decay: 0.15}
}

func (w CompositeWeights) sum() float64 {
	return w.Time + w.Envelope + w.Spectrum + w.Decay
}

// Validate requires finite, non-negative weights with a positive sum.
func (w CompositeWeights) Validate() error {
	for _, v := range []float64{w.Time, w.Envelope, w.Spectrum, w.Decay} {
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("composite weights must be finite and >= 0 (got %+v)", w)
		}
	}
	if w.sum() <= 0 {
		return fmt.Errorf("composite weights sum to zero")
	}
	return nil
}

// Breakdown is the per-term result of a composite comparison.
type Breakdown struct {
	SampleRate      int `json:"sample_rate"`
	TargetFrames    int `json:"target_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	// LagSamples is positive when the candidate starts late.
	LagSamples int `json:"lag_samples"`

	TimeRMSE         float64 `json:"time_rmse"`
	EnvelopeRMSEDB   float64 `json:"envelope_rmse_db"`
	SpectrumRMSEDB   float64 `json:"spectrum_rmse_db"`
	TargetDecayDB    float64 `json:"target_decay_db_per_s"`
	CandidateDecayDB float64 `json:"candidate_decay_db_per_s"`
	DecayDiffDB      float64 `json:"decay_diff_db_per_s"`

	// Score is the weighted distance in [0, 1]; 0 means identical.
	Score float64 `json:"score"`
}

// Similarity maps Score to (0, 1], 1 for identical signals.
func (b Breakdown) Similarity() float64 {
	return math.Exp(-4 * b.Score)
}

// Composite compares loudness-normalised, lag-aligned signals on waveform,
// RMS envelope, averaged spectrum and decay rate. The zero value uses
// DefaultCompositeWeights.
type Composite struct {
	Weights CompositeWeights `json:"weights"`
	// MaxLagSeconds bounds the alignment search. 0 means half a second.
	MaxLagSeconds float64 `json:"max_lag_seconds"`
}

func NewComposite() Composite {
	return Composite{Weights: DefaultCompositeWeights(), MaxLagSeconds: 0.5}
}

func (Composite) Name() string { return "composite" }

func (Composite) SimilarityScale() float64 { return 1 }

func (c Composite) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	b, err := c.Compare(
		waveform.Waveform{Samples: target, SampleRate: sampleRate},
		waveform.Waveform{Samples: candidate, SampleRate: sampleRate},
	)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}

// Compare scores candidate against target with the default weights.
func Compare(target, candidate waveform.Waveform) (Breakdown, error) {
	return NewComposite().Compare(target, candidate)
}

// Compare returns the per-term breakdown of candidate against target. Both
// signals must share a sample rate.
func (c Composite) Compare(target, candidate waveform.Waveform) (Breakdown, error) {
	w := c.Weights
	if w == (CompositeWeights{}) {
		w = DefaultCompositeWeights()
	}
	if err := w.Validate(); err != nil {
		return Breakdown{}, err
	}
	sr := target.SampleRate
	if err := checkInputs(candidate.Samples, target.Samples, sr); err != nil {
		return Breakdown{}, err
	}
	if candidate.SampleRate != sr {
		return Breakdown{}, fmt.Errorf("%w: target %d Hz, candidate %d Hz", ErrBadSampleRate, sr, candidate.SampleRate)
	}

	b := Breakdown{
		SampleRate:      sr,
		TargetFrames:    target.Len(),
		CandidateFrames: candidate.Len(),
	}
	ref := skipSilence(target.Samples)
	cand := skipSilence(candidate.Samples)
	switch {
	case len(ref) == 0 && len(cand) == 0:
		return b, nil
	case len(ref) == 0 || len(cand) == 0:
		b.Score = 1
		return b, nil
	}
	ref = unitRMS(ref)
	cand = unitRMS(cand)

	maxLag := c.MaxLagSeconds
	if maxLag <= 0 {
		maxLag = 0.5
	}
	lag, err := bestLag(ref, cand, int(maxLag*float64(sr)))
	if err != nil {
		return Breakdown{}, err
	}
	b.LagSamples = -lag
	if lag >= 0 {
		ref = ref[lag:]
	} else {
		cand = cand[-lag:]
	}
	n := min(len(ref), len(cand))
	ref, cand = ref[:n], cand[:n]
	b.AlignedFrames = n

	b.TimeRMSE = math.Sqrt(sumSquaredDiff(ref, cand) / float64(max(n, 1)))
	timeTerm := clamp01(b.TimeRMSE / timeFullScale)
	if n < minOverlap {
		b.Score = timeTerm
		return b, nil
	}

	refEnv := frameRMS(ref, envFrame, envHop)
	candEnv := frameRMS(cand, envFrame, envHop)
	b.EnvelopeRMSEDB = dbRMSE(refEnv, candEnv, 0)

	b.SpectrumRMSEDB, err = spectrumRMSEDB(ref, cand)
	if err != nil {
		return Breakdown{}, err
	}

	hop := float64(envHop) / float64(sr)
	b.TargetDecayDB = decayRate(refEnv, hop)
	b.CandidateDecayDB = decayRate(candEnv, hop)
	if isFinite(b.TargetDecayDB) && isFinite(b.CandidateDecayDB) {
		b.DecayDiffDB = math.Abs(b.TargetDecayDB - b.CandidateDecayDB)
	}

	score := w.Time*timeTerm +
		w.Envelope*clamp01(b.EnvelopeRMSEDB/envFullScaleDB) +
		w.Spectrum*clamp01(b.SpectrumRMSEDB/specFullScale) +
		w.Decay*clamp01(b.DecayDiffDB/decayFullScale)
	b.Score = clamp01(score / w.sum())
	return b, nil
}

func skipSilence(x []float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > silenceFloor {
			return x[i:]
		}
	}
	return nil
}

func unitRMS(x []float64) []float64 {
	r := rms(x)
	out := make([]float64, len(x))
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	for i, v := range x {
		out[i] = v / r
	}
	return out
}

// bestLag returns the lag in [-maxLag, maxLag] maximising the
// cross-correlation of ref and cand. A positive lag means ref[lag:] lines up
// with cand.
func bestLag(ref, cand []float64, maxLag int) (int, error) {
	maxLag = min(maxLag, len(ref)-1, len(cand)-1)
	if maxLag <= 0 {
		return 0, nil
	}
	corr, err := dspconv.CorrelateFFT(ref, cand)
	if err != nil {
		return 0, fmt.Errorf("cross-correlation: %w", err)
	}
	best, bestVal := 0, math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if v := corr[dspconv.IndexFromLag(lag, len(cand))]; v > bestVal {
			best, bestVal = lag, v
		}
	}
	return best, nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func frameRMS(x []float64, frame, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	out := make([]float64, 0, 1+(len(x)-frame)/hop)
	for start := 0; start+frame <= len(x); start += hop {
		out = append(out, rms(x[start:start+frame]))
	}
	return out
}

// dbRMSE is the RMS of the level difference in dB over a[from:] and b[from:].
func dbRMSE(a, b []float64, from int) float64 {
	n := min(len(a), len(b))
	if n <= from {
		return 0
	}
	var sum float64
	for i := from; i < n; i++ {
		d := toDB(a[i]) - toDB(b[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-from))
}

// spectrumRMSEDB compares the averaged magnitude spectra of a and b in dB,
// ignoring the DC bin.
func spectrumRMSEDB(a, b []float64) (float64, error) {
	size := min(floorPow2(len(a)), compareFFTSize)
	if size < 2*minOverlap {
		return 0, nil
	}
	sa, err := averagedSpectrum(a, size)
	if err != nil {
		return 0, err
	}
	sb, err := averagedSpectrum(b, size)
	if err != nil {
		return 0, err
	}
	return dbRMSE(sa, sb, 1), nil
}

func toDB(x float64) float64 {
	return 20 * math.Log10(math.Max(x, 1e-12))
}

// decayRate fits a line to the envelope in dB from its peak until it falls
// 60 dB below it and returns the slope in dB/s. NaN when too few frames
// remain.
func decayRate(env []float64, hopSec float64) float64 {
	if len(env) < 8 {
		return math.NaN()
	}
	peak := 0
	for i, v := range env {
		if v > env[peak] {
			peak = i
		}
	}
	floor := toDB(env[peak]) - 60
	end := len(env)
	for i := peak + 1; i < len(env); i++ {
		if toDB(env[i]) < floor {
			end = i
			break
		}
	}
	if end-(peak+1) < 6 {
		return math.NaN()
	}
	ys := make([]float64, 0, end-peak-1)
	for _, v := range env[peak+1 : end] {
		ys = append(ys, toDB(v))
	}
	return slope(ys, hopSec)
}

// slope is the least-squares slope of ys sampled every dx.
func slope(ys []float64, dx float64) float64 {
	n := float64(len(ys))
	mx := dx * (n - 1) / 2
	var my float64
	for _, y := range ys {
		my += y
	}
	my /= n
	var num, den float64
	for i, y := range ys {
		x := float64(i)*dx - mx
		num += x * (y - my)
		den += x * x
	}
	if den < 1e-18 {
		return math.NaN()
	}
	return num / den
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
