package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/algo-synthga/analysis"
	"github.com/cwbudde/algo-synthga/ga"
	"github.com/cwbudde/algo-synthga/irsynth"
	"github.com/cwbudde/algo-synthga/synth"
)

// File is the JSON schema for run presets. Every field is optional and
// overrides the default when present.
type File struct {
	Target string `json:"target"`
	Metric string `json:"metric"`
	// CompositeWeights is decoded over the current weights.
	CompositeWeights json.RawMessage `json:"composite_weights"`

	PopulationSize    *int     `json:"population_size"`
	MaxGenerations    *int     `json:"max_generations"`
	CrossoverRate     *float64 `json:"crossover_rate"`
	Crossover         string   `json:"crossover"`
	MutationRate      *float64 `json:"mutation_rate"`
	Mutation          string   `json:"mutation"`
	MutationSigma     *float64 `json:"mutation_sigma"`
	Selection         string   `json:"selection"`
	TournamentSize    *int     `json:"tournament_size"`
	Elitism           *int     `json:"elitism"`
	Immigrants        *int     `json:"immigrants"`
	TargetFitness     *float64 `json:"target_fitness"`
	StagnationWindow  *int     `json:"stagnation_window"`
	EvaluationTimeout string   `json:"evaluation_timeout"`
	Seed              *int64   `json:"seed"`
	Workers           *int     `json:"workers"`
	Direction         string   `json:"direction"`
	SimilarityScale   *float64 `json:"similarity_scale"`
	CacheFitness      *bool    `json:"cache_fitness"`

	Layout []string                `json:"layout"`
	Bounds map[string]BoundSetting `json:"bounds"`
	Voice  map[string]float64      `json:"voice"`
	Synth  *SynthSetting           `json:"synth"`
}

// BoundSetting narrows the search range of one layout parameter.
type BoundSetting struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// SynthSetting is a partial synth.Config override.
type SynthSetting struct {
	SampleRate *int     `json:"sample_rate"`
	Duration   *float64 `json:"duration"`
	Gain       *float64 `json:"gain"`
	Filter     string   `json:"filter"`
	FIRTaps    *int     `json:"fir_taps"`
	HighpassHz *float64 `json:"highpass_hz"`
	DCBlock    *bool    `json:"dc_block"`
	// Body is decoded over irsynth.DefaultBodyConfig.
	Body    json.RawMessage `json:"body"`
	BodyMix *float64        `json:"body_mix"`
}

// Settings is a fully resolved run configuration.
type Settings struct {
	TargetPath string
	Metric     string
	// Composite configures the "composite" metric.
	Composite analysis.Composite
	GA        ga.Config
	Synth     synth.Config
	Layout    synth.Layout
	Voice     synth.Voice
}

// DefaultSettings searches the full default layout with the sse metric.
func DefaultSettings() *Settings {
	s := &Settings{
		Metric:    "sse",
		Composite: analysis.NewComposite(),
		GA:        ga.DefaultConfig(),
		Synth:     synth.DefaultConfig(),
		Layout:    synth.DefaultLayout(),
		Voice:     synth.DefaultVoice(),
	}
	s.GA.Bounds = s.Layout.Bounds()
	return s
}

// NewMetric returns the configured fitness metric.
func (s *Settings) NewMetric() (analysis.Metric, error) {
	m, err := analysis.ParseMetric(s.Metric)
	if err != nil {
		return nil, err
	}
	if _, ok := m.(analysis.Composite); ok {
		return s.Composite, nil
	}
	return m, nil
}

// LoadJSON loads a preset file and applies it on top of DefaultSettings.
// A relative target path is resolved against the preset's directory.
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := DefaultSettings()
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}

	if s.TargetPath != "" && !filepath.IsAbs(s.TargetPath) {
		base := filepath.Dir(path)
		s.TargetPath = filepath.Clean(filepath.Join(base, s.TargetPath))
	}
	return s, nil
}

// ApplyFile applies a parsed preset onto dst and revalidates the result.
func ApplyFile(dst *Settings, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination settings")
	}
	if f == nil {
		return nil
	}

	if f.Target != "" {
		dst.TargetPath = strings.TrimSpace(f.Target)
	}
	if f.Metric != "" {
		if _, err := analysis.ParseMetric(f.Metric); err != nil {
			return err
		}
		dst.Metric = strings.ToLower(strings.TrimSpace(f.Metric))
	}
	if len(f.CompositeWeights) > 0 {
		w := dst.Composite.Weights
		if err := json.Unmarshal(f.CompositeWeights, &w); err != nil {
			return fmt.Errorf("composite_weights: %w", err)
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("composite_weights: %w", err)
		}
		dst.Composite.Weights = w
	}
	if err := applyGA(&dst.GA, f); err != nil {
		return err
	}
	if err := applySynth(&dst.Synth, f.Synth); err != nil {
		return err
	}

	if len(f.Layout) > 0 {
		l, err := synth.SubsetLayout(f.Layout...)
		if err != nil {
			return err
		}
		dst.Layout = l
	}
	if err := applyBounds(dst.Layout, f.Bounds); err != nil {
		return err
	}
	dst.GA.Bounds = dst.Layout.Bounds()

	names := make([]string, 0, len(f.Voice))
	for k := range f.Voice {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := dst.Voice.Set(k, f.Voice[k]); err != nil {
			return fmt.Errorf("voice: %w", err)
		}
	}

	if err := dst.GA.Validate(); err != nil {
		return err
	}
	return dst.Synth.Validate()
}

func applyGA(c *ga.Config, f *File) error {
	if f.PopulationSize != nil {
		c.PopulationSize = *f.PopulationSize
	}
	if f.MaxGenerations != nil {
		c.MaxGenerations = *f.MaxGenerations
	}
	if f.CrossoverRate != nil {
		c.CrossoverRate = *f.CrossoverRate
	}
	if f.Crossover != "" {
		c.Crossover = f.Crossover
	}
	if f.MutationRate != nil {
		c.MutationRate = *f.MutationRate
	}
	if f.Mutation != "" {
		c.Mutation = f.Mutation
	}
	if f.MutationSigma != nil {
		c.MutationSigma = *f.MutationSigma
	}
	if f.Selection != "" {
		c.Selection = f.Selection
	}
	if f.TournamentSize != nil {
		c.TournamentSize = *f.TournamentSize
	}
	if f.Elitism != nil {
		c.Elitism = *f.Elitism
	}
	if f.Immigrants != nil {
		c.Immigrants = *f.Immigrants
	}
	if f.TargetFitness != nil {
		v := *f.TargetFitness
		c.TargetFitness = &v
	}
	if f.StagnationWindow != nil {
		c.StagnationWindow = *f.StagnationWindow
	}
	if f.EvaluationTimeout != "" {
		d, err := time.ParseDuration(strings.TrimSpace(f.EvaluationTimeout))
		if err != nil {
			return fmt.Errorf("evaluation_timeout: %w", err)
		}
		c.EvaluationTimeout = d
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.Direction != "" {
		d, err := ga.ParseDirection(f.Direction)
		if err != nil {
			return err
		}
		c.Direction = d
	}
	if f.SimilarityScale != nil {
		c.SimilarityScale = *f.SimilarityScale
	}
	if f.CacheFitness != nil {
		c.CacheFitness = *f.CacheFitness
	}
	return nil
}

func applySynth(c *synth.Config, f *SynthSetting) error {
	if f == nil {
		return nil
	}
	if f.SampleRate != nil {
		c.SampleRate = *f.SampleRate
	}
	if f.Duration != nil {
		c.Duration = *f.Duration
	}
	if f.Gain != nil {
		c.Gain = *f.Gain
	}
	if f.Filter != "" {
		c.Filter = strings.ToLower(strings.TrimSpace(f.Filter))
	}
	if f.FIRTaps != nil {
		c.FIRTaps = *f.FIRTaps
	}
	if f.HighpassHz != nil {
		c.HighpassHz = *f.HighpassHz
	}
	if f.DCBlock != nil {
		c.DCBlock = *f.DCBlock
	}
	if len(f.Body) > 0 {
		b := irsynth.DefaultBodyConfig()
		if c.Body != nil {
			b = *c.Body
		}
		if err := json.Unmarshal(f.Body, &b); err != nil {
			return fmt.Errorf("synth.body: %w", err)
		}
		c.Body = &b
		if c.BodyMix == 0 {
			c.BodyMix = 0.5
		}
	}
	if f.BodyMix != nil {
		c.BodyMix = *f.BodyMix
	}
	return nil
}

func applyBounds(l synth.Layout, overrides map[string]BoundSetting) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		i := l.Index(k)
		if i < 0 {
			return fmt.Errorf("bounds[%q]: parameter not in layout", k)
		}
		o := overrides[k]
		if o.Min != nil {
			l[i].Min = *o.Min
		}
		if o.Max != nil {
			l[i].Max = *o.Max
		}
		if l[i].Min > l[i].Max {
			return fmt.Errorf("bounds[%q]: min %g > max %g", k, l[i].Min, l[i].Max)
		}
	}
	return nil
}
