// Package irsynth generates short synthetic impulse responses that colour the
// reference synth like a resonating body.
package irsynth

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/algo-synthga/dsp"
)

// BodyConfig controls body IR generation. Modes sit on the eigenfrequencies
// of a simply supported orthotropic plate:
//
//	f_mn/f_11 = sqrt(S*m^4 + 2*sqrt(S)*m^2*n^2*R^2 + n^4*R^4) / sqrt(S + 2*sqrt(S)*R^2 + R^4)
//
// with R = PlateRatio and S = StiffnessRatio. Modes below CrossoverHz ring
// for about LowDecay seconds, modes above it for about HighDecay.
type BodyConfig struct {
	Duration       float64 `json:"duration"`
	Modes          int     `json:"modes"`
	Seed           int64   `json:"seed"`
	LowestHz       float64 `json:"lowest_hz"`
	Brightness     float64 `json:"brightness"`
	PlateRatio     float64 `json:"plate_ratio"`
	StiffnessRatio float64 `json:"stiffness_ratio"`
	DirectLevel    float64 `json:"direct_level"`
	LowDecay       float64 `json:"low_decay"`
	HighDecay      float64 `json:"high_decay"`
	CrossoverHz    float64 `json:"crossover_hz"`
	FadeOut        float64 `json:"fade_out"`
	Peak           float64 `json:"peak"`
}

func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		Duration:       0.05,
		Modes:          32,
		Seed:           1,
		LowestHz:       35,
		Brightness:     1.0,
		PlateRatio:     1.6,
		StiffnessRatio: 12.0,
		DirectLevel:    0.6,
		LowDecay:       0.15,
		HighDecay:      0.03,
		CrossoverHz:    800,
		FadeOut:        0.005,
		Peak:           0.9,
	}
}

func (c BodyConfig) Validate() error {
	switch {
	case !(c.Duration > 0):
		return fmt.Errorf("body duration must be > 0")
	case c.Modes < 1:
		return fmt.Errorf("body modes must be >= 1")
	case !(c.LowestHz > 0):
		return fmt.Errorf("body lowest mode must be > 0 Hz")
	case !(c.Brightness > 0):
		return fmt.Errorf("body brightness must be > 0")
	case !(c.PlateRatio > 0) || !(c.StiffnessRatio > 0):
		return fmt.Errorf("plate and stiffness ratios must be > 0")
	case c.DirectLevel < 0:
		return fmt.Errorf("direct level must be >= 0")
	case !(c.LowDecay > 0) || !(c.HighDecay > 0):
		return fmt.Errorf("decay times must be > 0")
	case !(c.CrossoverHz > 0):
		return fmt.Errorf("crossover must be > 0 Hz")
	case c.FadeOut < 0:
		return fmt.Errorf("fade out must be >= 0")
	case !(c.Peak > 0):
		return fmt.Errorf("peak must be > 0")
	}
	return nil
}

// GenerateBody renders the body IR at sampleRate, normalised to cfg.Peak.
// The same config and rate always give the same IR.
func GenerateBody(cfg BodyConfig, sampleRate int) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate < 8000 {
		return nil, fmt.Errorf("body IR sample rate too low: %d", sampleRate)
	}

	n := max(1, int(math.Round(cfg.Duration*float64(sampleRate))))
	ir := make([]float64, n)
	ir[0] = cfg.DirectLevel

	rng := rand.New(rand.NewSource(cfg.Seed))
	maxHz := math.Max(0.47*float64(sampleRate), 500)
	logCross := math.Log(cfg.CrossoverHz)
	tilt := 0.7 + 0.9*cfg.Brightness
	for _, f := range PlateModes(cfg.LowestHz, maxHz, cfg.Modes, cfg.PlateRatio, cfg.StiffnessRatio) {
		amp := 0.9 / math.Pow(1+f/120, tilt)
		amp *= 0.7 + 0.6*rng.Float64()

		// 0 is all LowDecay, 1 all HighDecay.
		w := 1 / (1 + math.Exp(-3*(math.Log(f)-logCross)))
		tau := cfg.LowDecay*(1-w) + cfg.HighDecay*w
		r := math.Exp(-1 / (tau * float64(sampleRate)))

		addDampedMode(ir, amp, f, rng.Float64()*2*math.Pi, r, sampleRate)
	}

	out := make([]float32, n)
	for i, v := range ir {
		out[i] = float32(v)
	}
	dsp.DCBlock(out, 0.995)
	fadeOut(out, cfg.FadeOut, sampleRate)

	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak < 1e-12 {
		return out, nil
	}
	g := float32(cfg.Peak / peak)
	for i := range out {
		out[i] *= g
	}
	return out, nil
}

// PlateModes returns up to limit plate eigenfrequencies in [f11, maxHz],
// ascending.
func PlateModes(f11, maxHz float64, limit int, ratio, stiffness float64) []float64 {
	sqrtS := math.Sqrt(stiffness)
	r2 := ratio * ratio
	denom := math.Sqrt(stiffness + 2*sqrtS*r2 + r2*r2)

	mMax := int(math.Sqrt(maxHz/f11*denom/sqrtS)) + 2
	nMax := int(math.Sqrt(maxHz/f11*denom)) + 2
	freqs := make([]float64, 0, mMax*nMax)
	for m := 1; m <= mMax; m++ {
		m2 := float64(m * m)
		for k := 1; k <= nMax; k++ {
			n2 := float64(k * k)
			f := f11 * math.Sqrt(stiffness*m2*m2+2*sqrtS*m2*n2*r2+n2*n2*r2*r2) / denom
			if f > maxHz {
				break
			}
			freqs = append(freqs, f)
		}
	}
	sort.Float64s(freqs)
	if len(freqs) > limit {
		freqs = freqs[:limit]
	}
	return freqs
}

// addDampedMode accumulates amp*r^i*cos(w*i+phase) using the two-term
// cosine recurrence.
func addDampedMode(dst []float64, amp, freq, phase, r float64, sampleRate int) {
	w := 2 * math.Pi * freq / float64(sampleRate)
	c2 := 2 * math.Cos(w)
	prev, cur := math.Cos(phase-w), math.Cos(phase)
	env := amp
	for i := range dst {
		dst[i] += env * cur
		prev, cur = cur, c2*cur-prev
		env *= r
	}
}

// fadeOut applies a raised-cosine fade over the last sec seconds.
func fadeOut(buf []float32, sec float64, sampleRate int) {
	n := min(len(buf), int(math.Round(sec*float64(sampleRate))))
	if n <= 0 {
		return
	}
	start := len(buf) - n
	for i := 0; i < n; i++ {
		buf[start+i] *= float32(0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(n))))
	}
}
