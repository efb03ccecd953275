package dsp

import (
	"math"
	"testing"
)

func directConvolve(x, h []float32) []float32 {
	out := make([]float32, len(x)+len(h)-1)
	for i, xv := range x {
		for j, hv := range h {
			out[i+j] += xv * hv
		}
	}
	return out
}

func maxAbsDiff(a, b []float32) float64 {
	var d float64
	for i := range a {
		if v := math.Abs(float64(a[i] - b[i])); v > d {
			d = v
		}
	}
	return d
}

func TestConvolverMatchesDirectConvolution(t *testing.T) {
	input := make([]float32, 1000)
	for i := range input {
		input[i] = float32(math.Sin(float64(i)*0.07)) * 0.8
	}
	ir := []float32{1.0, 0.3, -0.2, 0.1, 0.05}

	c, err := NewConvolver(ir, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Process(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(input) {
		t.Fatalf("len = %d, want %d", len(got), len(input))
	}
	if d := maxAbsDiff(got, directConvolve(input, ir)[:len(input)]); d > 1e-4 {
		t.Fatalf("max diff=%g", d)
	}
}

func TestConvolverEmptyIRIsIdentity(t *testing.T) {
	c, err := NewConvolver(nil, 64)
	if err != nil {
		t.Fatal(err)
	}
	if c.IRLen() != 1 {
		t.Fatalf("IRLen = %d, want 1", c.IRLen())
	}
	in := []float32{0.5, -0.25, 1, 0}
	got, err := c.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if d := maxAbsDiff(got, in); d > 1e-6 {
		t.Fatalf("identity mismatch: %v", got)
	}
}

func TestConvolverResetClearsTail(t *testing.T) {
	c, err := NewConvolver([]float32{1, 0.5, 0.25}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Process([]float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	after, err := c.Process([]float32{0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range after {
		if math.Abs(float64(v)) > 1e-7 {
			t.Fatalf("after[%d] = %g, want silence", i, v)
		}
	}
}
