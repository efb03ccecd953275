package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
)

func buildReport(cfg *fitConfig, presetPath string, res *fitResult) (*fitcommon.Report, error) {
	s := cfg.settings
	if res.best == nil {
		return nil, fmt.Errorf("no candidate evaluated successfully (%d failures)", res.failures)
	}
	voice, err := s.Layout.Decode(res.best, s.Voice)
	if err != nil {
		return nil, err
	}
	params := make(map[string]float64, len(s.Layout))
	for i, d := range s.Layout {
		params[d.Name] = res.best[i]
	}
	return &fitcommon.Report{
		TargetPath:  s.TargetPath,
		PresetPath:  presetPath,
		Algorithm:   cfg.algorithm,
		Metric:      s.Metric,
		Direction:   s.GA.Direction.String(),
		Seed:        s.GA.Seed,
		ElapsedSec:  res.elapsed,
		Evaluations: res.evaluations,
		Failures:    res.failures,
		CacheHits:   res.cacheHits,
		Generations: res.generations,
		Stop:        res.stop,
		BestFitness: res.bestFitness,
		BestGenome:  res.best.Clone(),
		BestParams:  params,
		BestVoice:   voice,
		Synth:       s.Synth,
		Layout:      s.Layout,
		Base:        s.Voice,
		History:     res.history,
	}, nil
}

var historyHeader = []string{
	"generation", "population_size", "best", "mean", "std", "best_ever",
	"failures", "evaluations", "cache_hits", "elapsed_seconds", "fundamental_hz",
}

func writeHistoryCSV(path string, history []fitcommon.HistoryRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(historyHeader); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, st := range history {
		row := []string{
			strconv.Itoa(st.Generation),
			strconv.Itoa(st.PopulationSize),
			ff(st.Best),
			ff(st.Mean),
			ff(st.Std),
			ff(st.BestEver),
			strconv.Itoa(st.Failures),
			strconv.Itoa(st.Evaluations),
			strconv.Itoa(st.CacheHits),
			ff(st.ElapsedSeconds),
			ff(st.FundamentalHz),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// writeBestWAV re-renders the winning voice with a fresh context so an
// interrupted run still leaves its best candidate on disk.
func writeBestWAV(cfg *fitConfig, rep *fitcommon.Report, path string) error {
	r, err := newRenderer(cfg.settings)
	if err != nil {
		return err
	}
	w, err := r.RenderVoice(context.Background(), rep.BestVoice)
	if err != nil {
		return err
	}
	return fitcommon.WriteMonoWAV(path, w)
}
