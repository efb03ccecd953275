package synth

import (
	"github.com/cwbudde/algo-approx"
)

// envelopeTimeConstants sets how many time constants fit in the decay and
// release segments.
const envelopeTimeConstants = 5

// Envelope is a linear-attack, exponential decay/release ADSR. The release
// segment ends with the note, so it starts at duration-Release.
type Envelope struct {
	Attack, Decay, Sustain, Release float64
	Duration                        float64
}

// Level returns the gain at time t in seconds.
func (e Envelope) Level(t float64) float64 {
	if t < 0 || t > e.Duration {
		return 0
	}
	sustain := e.Sustain
	if sustain < 0 {
		sustain = 0
	} else if sustain > 1 {
		sustain = 1
	}

	var g float64
	switch {
	case e.Attack > 0 && t < e.Attack:
		g = t / e.Attack
	case e.Decay > 0 && t < e.Attack+e.Decay:
		x := float32(-envelopeTimeConstants * (t - e.Attack) / e.Decay)
		g = sustain + (1-sustain)*float64(approx.FastExp(x))
	default:
		g = sustain
	}

	release := e.Release
	if release > e.Duration {
		release = e.Duration
	}
	if start := e.Duration - release; release > 0 && t > start {
		x := float32(-envelopeTimeConstants * (t - start) / release)
		g *= float64(approx.FastExp(x))
	}
	return g
}
