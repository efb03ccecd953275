package fitcommon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-synthga/ga"
	"github.com/cwbudde/algo-synthga/synth"
)

// Report is the JSON written by synth-fit and read back by synth-render.
type Report struct {
	TargetPath  string  `json:"target_path"`
	PresetPath  string  `json:"preset_path,omitempty"`
	Algorithm   string  `json:"algorithm"`
	Metric      string  `json:"metric"`
	Direction   string  `json:"direction"`
	Seed        int64   `json:"seed"`
	ElapsedSec  float64 `json:"elapsed_seconds"`
	Evaluations int     `json:"evaluations"`
	Failures    int     `json:"failures"`
	CacheHits   int     `json:"cache_hits,omitempty"`
	Generations int     `json:"generations,omitempty"`
	Stop        string  `json:"stop"`

	BestFitness float64            `json:"best_fitness"`
	BestGenome  ga.Genome          `json:"best_genome"`
	BestParams  map[string]float64 `json:"best_params"`
	BestVoice   synth.Voice        `json:"best_voice"`

	Synth  synth.Config `json:"synth"`
	Layout synth.Layout `json:"layout"`
	Base   synth.Voice  `json:"base_voice"`

	History []HistoryRow `json:"history,omitempty"`
}

// HistoryRow is one generation (or search iteration) of a fit together with
// the dominant frequency of that step's best candidate.
type HistoryRow struct {
	ga.GenerationStats
	FundamentalHz float64 `json:"fundamental_hz"`
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// ReadReport loads a report and checks that its genome fits its layout.
func ReadReport(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rep.Layout) == 0 {
		return nil, fmt.Errorf("%s: report has no layout", path)
	}
	if len(rep.BestGenome) != len(rep.Layout) {
		return nil, fmt.Errorf("%s: genome has %d genes, layout has %d", path, len(rep.BestGenome), len(rep.Layout))
	}
	return &rep, nil
}
