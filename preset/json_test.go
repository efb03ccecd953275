package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-synthga/analysis"
	"github.com/cwbudde/algo-synthga/ga"
)

func writePreset(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return dir, path
}

func TestLoadJSONAppliesOverrides(t *testing.T) {
	dir, path := writePreset(t, `{
  "target": "target.wav",
  "metric": "Spectral",
  "population_size": 32,
  "max_generations": 200,
  "crossover": "two-point",
  "mutation": "creep",
  "selection": "roulette",
  "elitism": 2,
  "target_fitness": 0.01,
  "stagnation_window": 25,
  "evaluation_timeout": "250ms",
  "seed": 7,
  "layout": ["freq", "sine_amp", "attack"],
  "bounds": {"freq": {"min": 100, "max": 1000}},
  "voice": {"release": 0.2, "harmonic.2": 0.5},
  "synth": {"sample_rate": 22050, "duration": 0.5, "filter": "fir", "fir_taps": 63}
}`)

	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if want := filepath.Join(dir, "target.wav"); s.TargetPath != want {
		t.Fatalf("target path mismatch: got=%q want=%q", s.TargetPath, want)
	}
	if s.Metric != "spectral" {
		t.Fatalf("metric mismatch: %q", s.Metric)
	}
	c := s.GA
	if c.PopulationSize != 32 || c.MaxGenerations != 200 || c.Elitism != 2 || c.Seed != 7 {
		t.Fatalf("ga fields mismatch: %+v", c)
	}
	if c.Crossover != "two-point" || c.Mutation != "creep" || c.Selection != "roulette" {
		t.Fatalf("operator mismatch: %+v", c)
	}
	if c.TargetFitness == nil || *c.TargetFitness != 0.01 {
		t.Fatalf("target fitness mismatch: %v", c.TargetFitness)
	}
	if c.StagnationWindow != 25 || c.EvaluationTimeout != 250*time.Millisecond {
		t.Fatalf("stagnation/timeout mismatch: %+v", c)
	}
	if len(c.Bounds) != 3 || c.Bounds[0].Name != "freq" || c.Bounds[0].Min != 100 || c.Bounds[0].Max != 1000 {
		t.Fatalf("bounds mismatch: %+v", c.Bounds)
	}
	if len(s.Layout) != 3 || s.Layout[2].Name != "attack" {
		t.Fatalf("layout mismatch: %+v", s.Layout)
	}
	if s.Voice.Release != 0.2 || s.Voice.Harmonics[0] != 0.5 {
		t.Fatalf("voice mismatch: %+v", s.Voice)
	}
	if s.Synth.SampleRate != 22050 || s.Synth.Duration != 0.5 || s.Synth.Filter != "fir" || s.Synth.FIRTaps != 63 {
		t.Fatalf("synth mismatch: %+v", s.Synth)
	}
}

func TestLoadJSONBodyOverDefaults(t *testing.T) {
	_, path := writePreset(t, `{"synth": {"body": {"modes": 8, "seed": 3}, "body_mix": 0.25}}`)
	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	b := s.Synth.Body
	if b == nil {
		t.Fatalf("body not set")
	}
	if b.Modes != 8 || b.Seed != 3 || b.PlateRatio != 1.6 {
		t.Fatalf("body mismatch: %+v", *b)
	}
	if s.Synth.BodyMix != 0.25 {
		t.Fatalf("body mix = %f", s.Synth.BodyMix)
	}

	_, path = writePreset(t, `{"synth": {"body": {"modes": 0}}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for zero modes")
	}
}

func TestLoadJSONKeepsAbsoluteTarget(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.wav")
	_, path := writePreset(t, `{"target": "`+filepath.ToSlash(abs)+`"}`)
	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if filepath.Clean(s.TargetPath) != filepath.Clean(abs) {
		t.Fatalf("target path mismatch: got=%q want=%q", s.TargetPath, abs)
	}
}

func TestLoadJSONEmptyKeepsDefaults(t *testing.T) {
	_, path := writePreset(t, `{}`)
	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	def := DefaultSettings()
	if s.GA.PopulationSize != def.GA.PopulationSize || s.Metric != def.Metric {
		t.Fatalf("defaults not preserved: %+v", s.GA)
	}
	if len(s.GA.Bounds) != len(def.Layout) {
		t.Fatalf("bounds len=%d want %d", len(s.GA.Bounds), len(def.Layout))
	}
}

func TestLoadJSONRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{"population_size": }`},
		{"unknown metric", `{"metric": "nope"}`},
		{"zero population", `{"population_size": 0}`},
		{"bad crossover rate", `{"crossover_rate": 1.5}`},
		{"bad timeout", `{"evaluation_timeout": "soon"}`},
		{"bad direction", `{"direction": "sideways"}`},
		{"unknown layout param", `{"layout": ["freq", "wobble"]}`},
		{"bound outside layout", `{"layout": ["freq"], "bounds": {"q": {"min": 1}}}`},
		{"inverted bound", `{"bounds": {"freq": {"min": 500, "max": 100}}}`},
		{"unknown voice param", `{"voice": {"wobble": 1}}`},
		{"even fir taps", `{"synth": {"filter": "fir", "fir_taps": 64}}`},
		{"bad filter", `{"synth": {"filter": "comb"}}`},
		{"negative composite weight", `{"composite_weights": {"time": -1}}`},
		{"zero composite weights", `{"composite_weights": {"time": 0, "envelope": 0, "spectrum": 0, "decay": 0}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, path := writePreset(t, tc.content)
			if _, err := LoadJSON(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApplyFileConfigurationErrorType(t *testing.T) {
	s := DefaultSettings()
	n := -1
	err := ApplyFile(s, &File{Elitism: &n})
	if !errors.Is(err, ga.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApplyFileDirectionMaximize(t *testing.T) {
	s := DefaultSettings()
	if err := ApplyFile(s, &File{Direction: "maximize"}); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if s.GA.Direction != ga.Maximize {
		t.Fatalf("direction=%v", s.GA.Direction)
	}
}

func TestApplyFileNilIsNoop(t *testing.T) {
	s := DefaultSettings()
	if err := ApplyFile(s, nil); err != nil {
		t.Fatalf("ApplyFile(nil): %v", err)
	}
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected error for nil destination")
	}
}

func TestCompositeWeightsReachMetric(t *testing.T) {
	_, path := writePreset(t, `{"metric": "composite", "composite_weights": {"decay": 0}}`)
	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	m, err := s.NewMetric()
	if err != nil {
		t.Fatalf("NewMetric: %v", err)
	}
	c, ok := m.(analysis.Composite)
	if !ok {
		t.Fatalf("metric %T, want analysis.Composite", m)
	}
	want := analysis.DefaultCompositeWeights()
	want.Decay = 0
	if c.Weights != want {
		t.Fatalf("weights = %+v, want %+v", c.Weights, want)
	}

	s.Metric = "sse"
	if m, err := s.NewMetric(); err != nil || m.Name() != "sse" {
		t.Fatalf("NewMetric(sse) = %v, %v", m, err)
	}
}
