package synth

import (
	"fmt"
	"strconv"
	"strings"
)

// Voice is one decoded synthesizer patch. Times are in seconds.
type Voice struct {
	Freq        float64               `json:"freq"`
	SineAmp     float64               `json:"sine_amp"`
	SinePhase   float64               `json:"sine_phase"`
	SquareAmp   float64               `json:"square_amp"`
	SquarePhase float64               `json:"square_phase"`
	SawAmp      float64               `json:"saw_amp"`
	SawPhase    float64               `json:"saw_phase"`
	Harmonics   [NumHarmonics]float64 `json:"harmonics"`

	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`

	Cutoff float64 `json:"cutoff"`
	Q      float64 `json:"q"`
}

// DefaultVoice is a plain 440 Hz sine with an open filter.
func DefaultVoice() Voice {
	return Voice{
		Freq:    440,
		SineAmp: 0.8,
		Sustain: 1,
		Cutoff:  20000,
		Q:       0.707,
	}
}

func (v *Voice) field(name string) (*float64, error) {
	switch name {
	case "freq":
		return &v.Freq, nil
	case "sine_amp":
		return &v.SineAmp, nil
	case "sine_phase":
		return &v.SinePhase, nil
	case "square_amp":
		return &v.SquareAmp, nil
	case "square_phase":
		return &v.SquarePhase, nil
	case "saw_amp":
		return &v.SawAmp, nil
	case "saw_phase":
		return &v.SawPhase, nil
	case "attack":
		return &v.Attack, nil
	case "decay":
		return &v.Decay, nil
	case "sustain":
		return &v.Sustain, nil
	case "release":
		return &v.Release, nil
	case "cutoff":
		return &v.Cutoff, nil
	case "q":
		return &v.Q, nil
	}
	if rest, ok := strings.CutPrefix(name, "harmonic."); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n >= 2 && n < 2+NumHarmonics {
			return &v.Harmonics[n-2], nil
		}
	}
	return nil, fmt.Errorf("unknown synth parameter %q", name)
}

// Set assigns a parameter by its layout name.
func (v *Voice) Set(name string, x float64) error {
	p, err := v.field(name)
	if err != nil {
		return err
	}
	*p = x
	return nil
}

func (v Voice) Get(name string) (float64, error) {
	p, err := v.field(name)
	if err != nil {
		return 0, err
	}
	return *p, nil
}
