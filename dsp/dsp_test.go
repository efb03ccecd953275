package dsp

import (
	"math"
	"testing"
)

func sine(freq, sr float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sr))
	}
	return out
}

func peak(x []float32) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(float64(v)); a > p {
			p = a
		}
	}
	return p
}

func TestLowpassAttenuatesHighFrequencies(t *testing.T) {
	const sr = 48000
	low := sine(100, sr, 4800)
	high := sine(12000, sr, 4800)

	lp := NewLowpass(1000, sr, 0.707)
	lp.ProcessBlock(low)
	lp.Reset()
	lp.ProcessBlock(high)

	if pl := peak(low[2400:]); pl < 0.9 {
		t.Fatalf("passband peak = %f, want ~1", pl)
	}
	if ph := peak(high[2400:]); ph > 0.05 {
		t.Fatalf("stopband peak = %f, want < 0.05", ph)
	}
}

func TestHighpassAttenuatesLowFrequencies(t *testing.T) {
	const sr = 48000
	low := sine(50, sr, 9600)
	hp := NewHighpass(5000, sr, 0.707)
	hp.ProcessBlock(low)
	if p := peak(low[4800:]); p > 0.05 {
		t.Fatalf("highpass leaves %f of a 50 Hz tone", p)
	}
}

func TestLowpassClampsCutoffAboveNyquist(t *testing.T) {
	lp := NewLowpass(1e6, 8000, 0.707)
	x := sine(440, 8000, 800)
	lp.ProcessBlock(x)
	for i, v := range x {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
}

func TestDCBlockRemovesOffset(t *testing.T) {
	x := make([]float32, 20000)
	for i := range x {
		x[i] = 0.5
	}
	DCBlock(x, 0.995)
	if v := math.Abs(float64(x[len(x)-1])); v > 1e-3 {
		t.Fatalf("residual DC %f", v)
	}
}

func TestWindowedSincLowpassUnityDCGain(t *testing.T) {
	h, err := WindowedSincLowpass(2000, 48000, 101)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range h {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("DC gain %f, want 1", sum)
	}
	if _, err := WindowedSincLowpass(2000, 48000, 100); err == nil {
		t.Fatal("expected error for even tap count")
	}
	if _, err := WindowedSincLowpass(30000, 48000, 101); err == nil {
		t.Fatal("expected error for cutoff above Nyquist")
	}
}

func TestApplyFIRMatchesDirectConvolution(t *testing.T) {
	x := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	k := []float32{0.25, 0.5, 0.25}
	got, err := ApplyFIR(x, k)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(x) {
		t.Fatalf("len = %d, want %d", len(got), len(x))
	}
	// Centered convolution: out[i] = sum_j k[j]*x[i+1-j]
	for i := range x {
		var want float64
		for j := range k {
			idx := i + 1 - j
			if idx >= 0 && idx < len(x) {
				want += float64(k[j]) * float64(x[idx])
			}
		}
		if math.Abs(float64(got[i])-want) > 1e-4 {
			t.Fatalf("out[%d] = %f, want %f", i, got[i], want)
		}
	}
}

func TestHighpassFIRRemovesDC(t *testing.T) {
	h, err := WindowedSincHighpass(500, 8000, 63)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float32, 1000)
	for i := range x {
		x[i] = 1
	}
	y, err := ApplyFIR(x, h)
	if err != nil {
		t.Fatal(err)
	}
	if v := math.Abs(float64(y[500])); v > 1e-3 {
		t.Fatalf("highpass DC residual %f", v)
	}
}
