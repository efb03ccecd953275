package analysis

import (
	"math"
	"testing"
)

func BenchmarkCompositeDistance(b *testing.B) {
	const sr = 48000
	a, c := benchmarkSignals(3 * sr)
	m := NewComposite()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Distance(c, a, sr); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSpectralMSE(b *testing.B) {
	const sr = 48000
	a, c := benchmarkSignals(sr)
	m := SpectralMSE{FrameSize: DefaultSpectralFrame}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Distance(c, a, sr); err != nil {
			b.Fatal(err)
		}
	}
}

// benchmarkSignals returns two slightly detuned two-partial tones.
func benchmarkSignals(n int) ([]float64, []float64) {
	a := make([]float64, n)
	c := make([]float64, n)
	for i := range a {
		t := float64(i) / 48000
		a[i] = 0.7*math.Sin(2*math.Pi*220*t) + 0.25*math.Sin(2*math.Pi*660*t)
		c[i] = 0.6*math.Sin(2*math.Pi*221*t+0.05) + 0.3*math.Sin(2*math.Pi*670*t)
	}
	return a, c
}
