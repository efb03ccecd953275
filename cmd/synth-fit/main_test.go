package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-synthga/analysis"
	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/preset"
	"github.com/cwbudde/algo-synthga/search"
	"github.com/cwbudde/algo-synthga/synth"
)

func testSettings(t *testing.T) *preset.Settings {
	t.Helper()
	s := preset.DefaultSettings()
	layout, err := synth.SubsetLayout("freq", "sine_amp")
	if err != nil {
		t.Fatalf("SubsetLayout: %v", err)
	}
	s.Layout = layout
	s.GA.Bounds = layout.Bounds()
	s.GA.PopulationSize = 8
	s.GA.MaxGenerations = 3
	s.GA.Elitism = 1
	s.GA.Workers = 2
	s.Synth.SampleRate = 8000
	s.Synth.Duration = 0.05
	s.Synth.Filter = synth.FilterNone
	return s
}

func testFitConfig(t *testing.T, algorithm string) *fitConfig {
	t.Helper()
	s := testSettings(t)
	r, err := newRenderer(s)
	if err != nil {
		t.Fatalf("newRenderer: %v", err)
	}
	v := s.Voice
	v.Freq = 300
	v.SineAmp = 0.5
	target, err := r.RenderVoice(context.Background(), v)
	if err != nil {
		t.Fatalf("render target: %v", err)
	}
	hc := search.DefaultHillClimbConfig()
	hc.MaxIterations = 10
	return &fitConfig{
		settings:    s,
		target:      target,
		algorithm:   algorithm,
		reportEvery: 1,
		hillClimb:   hc,
		mayfly: search.MayflyConfig{
			Variant:        "ma",
			Population:     2,
			RoundEvals:     20,
			MaxEvaluations: 40,
			Seed:           3,
		},
	}
}

func TestRunFitAlgorithms(t *testing.T) {
	for _, alg := range []string{"ga", "hillclimb", "mayfly"} {
		t.Run(alg, func(t *testing.T) {
			cfg := testFitConfig(t, alg)
			res, err := runFit(context.Background(), cfg)
			if err != nil {
				t.Fatalf("runFit: %v", err)
			}
			if len(res.best) != 2 {
				t.Fatalf("best genome has %d genes", len(res.best))
			}
			if res.evaluations == 0 || res.stop == "" {
				t.Fatalf("unexpected result: %+v", res)
			}
			if !cfg.settings.GA.Bounds.Contains(res.best) {
				t.Fatalf("best genome out of bounds: %v", res.best)
			}
		})
	}
}

func TestHistoryRecordsBestFundamental(t *testing.T) {
	for _, alg := range []string{"ga", "hillclimb", "mayfly"} {
		t.Run(alg, func(t *testing.T) {
			cfg := testFitConfig(t, alg)
			res, err := runFit(context.Background(), cfg)
			if err != nil {
				t.Fatalf("runFit: %v", err)
			}
			if len(res.history) != res.generations {
				t.Fatalf("history has %d rows, want %d", len(res.history), res.generations)
			}
			r, err := newRenderer(cfg.settings)
			if err != nil {
				t.Fatalf("newRenderer: %v", err)
			}
			for _, row := range res.history {
				if row.BestGenome == nil {
					t.Fatalf("step %d has no best genome", row.Generation)
				}
				w, err := r.Render(context.Background(), row.BestGenome)
				if err != nil {
					t.Fatalf("render: %v", err)
				}
				if want := analysis.Fundamental(w); row.FundamentalHz != want {
					t.Fatalf("step %d fundamental=%g want %g", row.Generation, row.FundamentalHz, want)
				}
			}
		})
	}
}

func TestRunFitUnknownAlgorithm(t *testing.T) {
	cfg := testFitConfig(t, "annealing")
	if _, err := runFit(context.Background(), cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestReportAndHistoryOutputs(t *testing.T) {
	cfg := testFitConfig(t, "ga")
	res, err := runFit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("runFit: %v", err)
	}
	rep, err := buildReport(cfg, "", res)
	if err != nil {
		t.Fatalf("buildReport: %v", err)
	}
	if rep.BestVoice.Freq != res.best[0] || rep.BestParams["sine_amp"] != res.best[1] {
		t.Fatalf("report params mismatch: %+v", rep.BestParams)
	}

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	if err := fitcommon.WriteJSON(reportPath, rep); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	back, err := fitcommon.ReadReport(reportPath)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if len(back.History) != res.generations || back.Stop != res.stop {
		t.Fatalf("report round trip mismatch: %+v", back)
	}

	csvPath := filepath.Join(dir, "history.csv")
	if err := writeHistoryCSV(csvPath, res.history); err != nil {
		t.Fatalf("writeHistoryCSV: %v", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != len(res.history)+1 || len(rows[0]) != len(historyHeader) {
		t.Fatalf("csv has %d rows", len(rows))
	}
	if rows[0][len(rows[0])-1] != "fundamental_hz" {
		t.Fatalf("csv header %v", rows[0])
	}

	wavPath := filepath.Join(dir, "best.wav")
	if err := writeBestWAV(cfg, rep, wavPath); err != nil {
		t.Fatalf("writeBestWAV: %v", err)
	}
	w, err := fitcommon.ReadWAVMono(wavPath)
	if err != nil {
		t.Fatalf("ReadWAVMono: %v", err)
	}
	if w.Len() != cfg.settings.Synth.Frames() {
		t.Fatalf("wav len=%d want %d", w.Len(), cfg.settings.Synth.Frames())
	}
}

func TestBuildReportWithoutBest(t *testing.T) {
	cfg := testFitConfig(t, "ga")
	if _, err := buildReport(cfg, "", &fitResult{failures: 8}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyFlagsOverridesPreset(t *testing.T) {
	s := testSettings(t)
	err := applyFlags(s, flagOverrides{
		target:         "x.wav",
		metric:         "nsse",
		direction:      "maximize",
		seed:           9,
		population:     12,
		maxGenerations: 4,
		workers:        3,
	})
	if err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if s.TargetPath != "x.wav" || s.Metric != "nsse" || s.GA.Seed != 9 {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.GA.PopulationSize != 12 || s.GA.MaxGenerations != 4 || s.GA.Workers != 3 {
		t.Fatalf("ga overrides not applied: %+v", s.GA)
	}
	if len(s.GA.Bounds) != 2 {
		t.Fatalf("layout lost: %d bounds", len(s.GA.Bounds))
	}
	if err := applyFlags(s, flagOverrides{metric: "nope"}); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}
