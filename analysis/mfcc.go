package analysis

import (
	"fmt"
	"io"
	"math"

	"github.com/shanghuiyang/dtw"
	"github.com/unixpickle/speechrecog/mfcc"
)

const (
	defaultMelCount = 13
	defaultLowFreq  = 133.33

	// silencePenalty is returned when exactly one of the two signals is silent.
	silencePenalty = 1e6
)

// MFCCDTW compares the MFCC frame sequences of both signals with dynamic time
// warping. Both signals are peak-normalised first, so the metric ignores
// overall gain. The result is the warp distance divided by the longer frame
// count.
type MFCCDTW struct {
	MelCount int
	LowFreq  float64
}

func NewMFCCDTW() MFCCDTW {
	return MFCCDTW{MelCount: defaultMelCount, LowFreq: defaultLowFreq}
}

func (MFCCDTW) Name() string { return "mfcc-dtw" }

func (MFCCDTW) SimilarityScale() float64 { return 100 }

func (m MFCCDTW) Distance(candidate, target []float64, sampleRate int) (float64, error) {
	if err := checkInputs(candidate, target, sampleRate); err != nil {
		return 0, err
	}
	cand, candPeak := peakNormalize(candidate)
	ref, refPeak := peakNormalize(target)
	switch {
	case candPeak == 0 && refPeak == 0:
		return 0, nil
	case candPeak == 0 || refPeak == 0:
		return silencePenalty, nil
	}

	opts := &mfcc.Options{MelCount: m.MelCount, LowFreq: m.LowFreq}
	if opts.MelCount <= 0 {
		opts.MelCount = defaultMelCount
	}
	if opts.LowFreq <= 0 {
		opts.LowFreq = defaultLowFreq
	}

	candCoeffs, err := mfccFrames(cand, sampleRate, opts)
	if err != nil {
		return 0, fmt.Errorf("candidate mfcc: %w", err)
	}
	refCoeffs, err := mfccFrames(ref, sampleRate, opts)
	if err != nil {
		return 0, fmt.Errorf("target mfcc: %w", err)
	}
	if len(candCoeffs) == 0 || len(refCoeffs) == 0 {
		return 0, fmt.Errorf("mfcc: signal too short for one frame (%d/%d samples)", len(candidate), len(target))
	}

	warper := dtw.New()
	dist, err := warper.Distance(refCoeffs, candCoeffs, frameDistance)
	if err != nil {
		return 0, fmt.Errorf("dtw: %w", err)
	}
	if !isFinite(dist) || dist < 0 {
		return 0, fmt.Errorf("dtw: invalid distance %v", dist)
	}
	frames := len(refCoeffs)
	if len(candCoeffs) > frames {
		frames = len(candCoeffs)
	}
	return dist / float64(frames), nil
}

func mfccFrames(x []float64, sampleRate int, opts *mfcc.Options) ([][]float64, error) {
	var src mfcc.SliceSource
	src.Slice = x
	it := mfcc.MFCC(&src, sampleRate, opts)
	var out [][]float64
	for {
		c, err := it.NextCoeffs()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}

// frameDistance is the euclidean distance between two coefficient vectors.
// Mismatched inputs yield +Inf so the warp rejects them.
func frameDistance(x, y interface{}) float64 {
	a, ok := x.([]float64)
	if !ok {
		return math.Inf(1)
	}
	b, ok := y.([]float64)
	if !ok || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func peakNormalize(x []float64) ([]float64, float64) {
	var peak float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	out := make([]float64, len(x))
	if peak == 0 {
		return out, 0
	}
	for i, v := range x {
		out[i] = v / peak
	}
	return out, peak
}
