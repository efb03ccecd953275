// Package synth is the reference synthesizer searched by the GA: a voice
// made of sine, square and saw oscillators plus harmonic partials, shaped by
// an ADSR envelope and a resonant low-pass.
package synth

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-synthga/dsp"
	"github.com/cwbudde/algo-synthga/ga"
	"github.com/cwbudde/algo-synthga/irsynth"
	"github.com/cwbudde/algo-synthga/waveform"
)

const renderBlock = 4096

// Filter modes.
const (
	FilterBiquad = "biquad"
	FilterFIR    = "fir"
	FilterNone   = "none"
)

// Config holds the render settings that are not searched.
type Config struct {
	SampleRate int     `json:"sample_rate"`
	Duration   float64 `json:"duration"`
	Gain       float64 `json:"gain"`
	Filter     string  `json:"filter"`
	FIRTaps    int     `json:"fir_taps"`
	// HighpassHz removes rumble below it. 0 disables.
	HighpassHz float64 `json:"highpass_hz"`
	DCBlock    bool    `json:"dc_block"`
	// Body adds a synthetic resonating body mixed in at BodyMix. nil
	// disables it.
	Body    *irsynth.BodyConfig `json:"body,omitempty"`
	BodyMix float64             `json:"body_mix,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Duration:   1.0,
		Gain:       1.0,
		Filter:     FilterBiquad,
		FIRTaps:    127,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0 (got %d)", c.SampleRate)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("duration must be > 0 (got %g)", c.Duration)
	}
	if math.IsNaN(c.Gain) || math.IsInf(c.Gain, 0) {
		return fmt.Errorf("gain must be finite")
	}
	switch strings.ToLower(c.Filter) {
	case FilterBiquad, FilterNone, "":
	case FilterFIR:
		if c.FIRTaps < 3 || c.FIRTaps%2 == 0 {
			return fmt.Errorf("fir taps must be odd and >= 3 (got %d)", c.FIRTaps)
		}
	default:
		return fmt.Errorf("unknown filter %q (valid: biquad, fir, none)", c.Filter)
	}
	if c.HighpassHz < 0 || c.HighpassHz >= float64(c.SampleRate)/2 {
		return fmt.Errorf("highpass %.2f Hz outside [0, %d)", c.HighpassHz, c.SampleRate/2)
	}
	if c.Body != nil {
		if err := c.Body.Validate(); err != nil {
			return err
		}
		if math.IsNaN(c.BodyMix) || c.BodyMix < 0 || c.BodyMix > 1 {
			return fmt.Errorf("body mix must be in [0, 1] (got %g)", c.BodyMix)
		}
	}
	return nil
}

// Frames is the number of samples per render.
func (c Config) Frames() int {
	return int(math.Round(c.Duration * float64(c.SampleRate)))
}

// Additive renders genomes decoded through Layout over Base. It implements
// ga.Renderer and is safe for concurrent use. Config must not change after
// NewAdditive.
type Additive struct {
	Config Config
	Layout Layout
	Base   Voice

	body []float32
}

// NewAdditive validates cfg and layout.
func NewAdditive(cfg Config, layout Layout) (*Additive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout has no parameters")
	}
	base := DefaultVoice()
	for _, d := range layout {
		if _, err := base.Get(d.Name); err != nil {
			return nil, err
		}
	}
	a := &Additive{Config: cfg, Layout: layout, Base: base}
	if cfg.Body != nil && cfg.BodyMix > 0 {
		ir, err := irsynth.GenerateBody(*cfg.Body, cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		a.body = ir
	}
	return a, nil
}

// Render decodes g and renders it.
func (a *Additive) Render(ctx context.Context, g ga.Genome) (waveform.Waveform, error) {
	v, err := a.Layout.Decode(g, a.Base)
	if err != nil {
		return waveform.Waveform{}, err
	}
	return a.RenderVoice(ctx, v)
}

// RenderVoice renders v for Config.Duration seconds.
func (a *Additive) RenderVoice(ctx context.Context, v Voice) (waveform.Waveform, error) {
	cfg := a.Config
	sr := cfg.SampleRate
	n := cfg.Frames()
	if n <= 0 {
		return waveform.Waveform{}, fmt.Errorf("render length is %d samples", n)
	}
	env := Envelope{Attack: v.Attack, Decay: v.Decay, Sustain: v.Sustain, Release: v.Release, Duration: cfg.Duration}
	nyquist := float64(sr) / 2

	out := make([]float64, n)
	for off := 0; off < n; off += renderBlock {
		if err := ctx.Err(); err != nil {
			return waveform.Waveform{}, err
		}
		end := off + renderBlock
		if end > n {
			end = n
		}
		blk := out[off:end]
		addSine(blk, off, v.Freq, v.SineAmp, v.SinePhase, sr)
		addSquare(blk, off, v.Freq, v.SquareAmp, v.SquarePhase, sr)
		addSaw(blk, off, v.Freq, v.SawAmp, v.SawPhase, sr)
		for h, amp := range v.Harmonics {
			f := v.Freq * float64(h+2)
			if f >= nyquist {
				break
			}
			addSine(blk, off, f, amp, 0, sr)
		}
		for i := range blk {
			blk[i] *= cfg.Gain * env.Level(float64(off+i)/float64(sr))
		}
	}

	buf := make([]float32, n)
	for i, x := range out {
		buf[i] = float32(x)
	}
	buf, err := a.filter(buf, v)
	if err != nil {
		return waveform.Waveform{}, err
	}
	w := waveform.FromFloat32(buf, sr)
	if i := waveform.FirstNonFinite(w.Samples); i >= 0 {
		return waveform.Waveform{}, fmt.Errorf("%w at index %d", waveform.ErrNonFinite, i)
	}
	return w, nil
}

func (a *Additive) filter(buf []float32, v Voice) ([]float32, error) {
	cfg := a.Config
	sr := float64(cfg.SampleRate)
	switch strings.ToLower(cfg.Filter) {
	case FilterFIR:
		if v.Cutoff > 0 && v.Cutoff < 0.49*sr {
			h, err := dsp.WindowedSincLowpass(v.Cutoff, sr, cfg.FIRTaps)
			if err != nil {
				return nil, err
			}
			if buf, err = dsp.ApplyFIR(buf, h); err != nil {
				return nil, err
			}
		}
		if cfg.HighpassHz > 0 {
			h, err := dsp.WindowedSincHighpass(cfg.HighpassHz, sr, cfg.FIRTaps)
			if err != nil {
				return nil, err
			}
			if buf, err = dsp.ApplyFIR(buf, h); err != nil {
				return nil, err
			}
		}
	case FilterNone:
	default:
		if v.Cutoff > 0 && v.Cutoff < 0.49*sr {
			dsp.NewLowpass(float32(v.Cutoff), float32(sr), float32(v.Q)).ProcessBlock(buf)
		}
		if cfg.HighpassHz > 0 {
			dsp.NewHighpass(float32(cfg.HighpassHz), float32(sr), 0.707).ProcessBlock(buf)
		}
	}
	if a.body != nil {
		c, err := dsp.NewConvolver(a.body, dsp.DefaultPartSize)
		if err != nil {
			return nil, err
		}
		wet, err := c.Process(buf)
		if err != nil {
			return nil, err
		}
		mix := float32(cfg.BodyMix)
		for i := range buf {
			buf[i] = (1-mix)*buf[i] + mix*wet[i]
		}
	}
	if cfg.DCBlock {
		dsp.DCBlock(buf, 0.995)
	}
	return buf, nil
}
