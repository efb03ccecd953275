package synth

import "math"

const twoPi = 2 * math.Pi

// Sine returns n samples of amp*sin(2*pi*freq*t + phase).
func Sine(freq, amp, phase float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	addSine(out, 0, freq, amp, phase, sampleRate)
	return out
}

// Square returns n samples of a +-amp square wave. phase is in radians.
func Square(freq, amp, phase float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	addSquare(out, 0, freq, amp, phase, sampleRate)
	return out
}

// Saw returns n samples of a rising sawtooth in [-amp, amp). phase is in
// radians.
func Saw(freq, amp, phase float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	addSaw(out, 0, freq, amp, phase, sampleRate)
	return out
}

// The add* helpers accumulate into dst, where dst[0] is sample index offset.

func addSine(dst []float64, offset int, freq, amp, phase float64, sampleRate int) {
	if amp == 0 || freq <= 0 {
		return
	}
	w := twoPi * freq / float64(sampleRate)
	for i := range dst {
		dst[i] += amp * math.Sin(w*float64(offset+i)+phase)
	}
}

func addSquare(dst []float64, offset int, freq, amp, phase float64, sampleRate int) {
	if amp == 0 || freq <= 0 {
		return
	}
	cycle := float64(sampleRate) / freq
	shift := cycle / twoPi * phase
	for i := range dst {
		if math.Mod(float64(offset+i)+shift, cycle) < cycle/2 {
			dst[i] += amp
		} else {
			dst[i] -= amp
		}
	}
}

func addSaw(dst []float64, offset int, freq, amp, phase float64, sampleRate int) {
	if amp == 0 || freq <= 0 {
		return
	}
	sr := float64(sampleRate)
	shift := sr / (freq * twoPi) * phase
	period := 1 / freq
	for i := range dst {
		t := (float64(offset+i) + shift) / sr
		dst[i] += amp * (freq*math.Mod(t, period)*2 - 1)
	}
}
