package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-synthga/analysis"
	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/waveform"
)

type distanceReport struct {
	SampleRate int                `json:"sample_rate"`
	Distances  map[string]float64 `json:"distances"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Compare    analysis.Breakdown `json:"compare"`
	Similarity float64            `json:"similarity"`
}

func main() {
	aPath := flag.String("a", "", "Reference WAV path")
	bPath := flag.String("b", "", "Candidate WAV path")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	if *aPath == "" || *bPath == "" {
		die("both -a and -b are required")
	}
	a, err := fitcommon.ReadWAVMono(*aPath)
	if err != nil {
		die("failed to read %s: %v", *aPath, err)
	}
	b, err := fitcommon.ReadWAVMono(*bPath)
	if err != nil {
		die("failed to read %s: %v", *bPath, err)
	}
	b, err = fitcommon.ResampleIfNeeded(b, a.SampleRate)
	if err != nil {
		die("failed to resample %s: %v", *bPath, err)
	}

	rep, err := measure(a, b)
	if err != nil {
		die("compare failed: %v", err)
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference frames: %d\n", rep.Compare.TargetFrames)
	fmt.Printf("Candidate frames: %d\n", rep.Compare.CandidateFrames)
	fmt.Printf("Sample rate:      %d Hz\n", rep.SampleRate)
	fmt.Println()
	fmt.Printf("Metric       Distance\n")
	fmt.Printf("─────────────────────────\n")
	for _, name := range analysis.MetricNames() {
		if msg, ok := rep.Errors[name]; ok {
			fmt.Printf("%-12s error: %s\n", name, msg)
			continue
		}
		fmt.Printf("%-12s %.6g\n", name, rep.Distances[name])
	}
	fmt.Printf("─────────────────────────\n")
	fmt.Printf("Lag:              %d samples\n", rep.Compare.LagSamples)
	fmt.Printf("Time RMSE:        %.6f\n", rep.Compare.TimeRMSE)
	fmt.Printf("Envelope RMSE:    %.1f dB\n", rep.Compare.EnvelopeRMSEDB)
	fmt.Printf("Spectrum RMSE:    %.1f dB\n", rep.Compare.SpectrumRMSEDB)
	fmt.Printf("Decay diff:       %.1f dB/s\n", rep.Compare.DecayDiffDB)
	fmt.Printf("Similarity:       %.2f%%\n", rep.Similarity*100.0)
}

// measure runs every registered metric on the zero-padded pair and adds the
// composite breakdown of b against a.
func measure(a, b waveform.Waveform) (distanceReport, error) {
	cmp, err := analysis.Compare(a, b)
	if err != nil {
		return distanceReport{}, err
	}
	rep := distanceReport{
		SampleRate: a.SampleRate,
		Distances:  map[string]float64{},
		Compare:    cmp,
		Similarity: cmp.Similarity(),
	}
	cand, target := waveform.Align(b.Samples, a.Samples)
	for _, name := range analysis.MetricNames() {
		m, err := analysis.ParseMetric(name)
		if err == nil {
			var d float64
			if d, err = m.Distance(cand, target, a.SampleRate); err == nil {
				rep.Distances[name] = d
				continue
			}
		}
		if rep.Errors == nil {
			rep.Errors = map[string]string{}
		}
		rep.Errors[name] = err.Error()
	}
	return rep, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
