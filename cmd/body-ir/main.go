package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/irsynth"
	"github.com/cwbudde/algo-synthga/waveform"
)

func main() {
	cfg := irsynth.DefaultBodyConfig()

	output := flag.String("output", "out/body_ir.wav", "Output WAV path")
	sampleRate := flag.Int("sample-rate", 44100, "Output sample rate")
	flag.Float64Var(&cfg.Duration, "duration", cfg.Duration, "IR length in seconds")
	flag.IntVar(&cfg.Modes, "modes", cfg.Modes, "Number of plate modes")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.LowestHz, "lowest", cfg.LowestHz, "Lowest mode frequency (Hz)")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Spectral brightness control (>0)")
	flag.Float64Var(&cfg.PlateRatio, "plate-ratio", cfg.PlateRatio, "Plate aspect ratio Lx/Ly")
	flag.Float64Var(&cfg.StiffnessRatio, "stiffness-ratio", cfg.StiffnessRatio, "Orthotropic stiffness ratio Dx/Dy")
	flag.Float64Var(&cfg.DirectLevel, "direct", cfg.DirectLevel, "Direct impulse level")
	flag.Float64Var(&cfg.LowDecay, "low-decay", cfg.LowDecay, "Low-frequency decay time (s)")
	flag.Float64Var(&cfg.HighDecay, "high-decay", cfg.HighDecay, "High-frequency decay time (s)")
	flag.Float64Var(&cfg.CrossoverHz, "crossover", cfg.CrossoverHz, "Decay crossover frequency (Hz)")
	flag.Float64Var(&cfg.Peak, "normalize", cfg.Peak, "Peak normalization target")
	flag.Parse()

	ir, err := irsynth.GenerateBody(cfg, *sampleRate)
	if err != nil {
		die("body-ir error: %v", err)
	}
	w := waveform.FromFloat32(ir, *sampleRate)
	if err := fitcommon.WriteMonoWAV(*output, w); err != nil {
		die("wav write error: %v", err)
	}

	var peak float64
	for _, v := range w.Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	rms := 0.0
	if w.Len() > 0 {
		rms = math.Sqrt(w.Energy() / float64(w.Len()))
	}
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", *sampleRate, w.Duration(), w.Len())
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
