package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/synth"
	"github.com/cwbudde/algo-synthga/waveform"
)

func main() {
	reportPath := flag.String("report", "out/report.json", "Fit report JSON path")
	output := flag.String("output", "output.wav", "Output WAV file path")
	duration := flag.Float64("duration", 0, "Render duration in seconds (0 keeps the report value)")
	sampleRate := flag.Int("sample-rate", 0, "Render sample rate in Hz (0 keeps the report value)")
	flag.Parse()

	rep, err := fitcommon.ReadReport(*reportPath)
	if err != nil {
		die("failed to load report: %v", err)
	}
	if *duration > 0 {
		rep.Synth.Duration = *duration
	}
	if *sampleRate > 0 {
		rep.Synth.SampleRate = *sampleRate
	}

	fmt.Printf("Rendering %s genome (%d genes) for %.2f seconds at %d Hz...\n", rep.Algorithm, len(rep.BestGenome), rep.Synth.Duration, rep.Synth.SampleRate)

	w, err := renderReport(context.Background(), rep)
	if err != nil {
		die("render failed: %v", err)
	}
	if err := fitcommon.WriteMonoWAV(*output, w); err != nil {
		die("failed to write %s: %v", *output, err)
	}
	fmt.Printf("Wrote %d samples (%.2f s) to %s\n", w.Len(), w.Duration(), *output)
}

// renderReport decodes the report's genome over its base voice and renders it.
func renderReport(ctx context.Context, rep *fitcommon.Report) (waveform.Waveform, error) {
	r, err := synth.NewAdditive(rep.Synth, rep.Layout)
	if err != nil {
		return waveform.Waveform{}, err
	}
	r.Base = rep.Base
	return r.Render(ctx, rep.BestGenome)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
