package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/algo-synthga/analysis"
	fitcommon "github.com/cwbudde/algo-synthga/internal/fitcommon"
	"github.com/cwbudde/algo-synthga/preset"
	"github.com/cwbudde/algo-synthga/search"
)

func main() {
	targetPath := flag.String("target", "", "Target WAV path (overrides the preset's target)")
	presetPath := flag.String("preset", "", "Optional run preset JSON path")
	algorithm := flag.String("algorithm", "ga", "Search algorithm: ga|hillclimb|mayfly")
	metric := flag.String("metric", "", "Distance metric: "+strings.Join(analysis.MetricNames(), "|"))
	direction := flag.String("direction", "", "Score direction: minimize|maximize")
	seed := flag.Int64("seed", 0, "Random seed (0 keeps the preset value)")
	population := flag.Int("population", 0, "GA population size (0 keeps the preset value)")
	maxGenerations := flag.Int("max-generations", 0, "GA generation limit (0 keeps the preset value)")
	workers := flag.String("workers", "auto", "Parallel evaluation workers (number or 'auto')")
	timeout := flag.Duration("timeout", 0, "Per-evaluation timeout (0 keeps the preset value)")
	timeBudget := flag.Duration("time-budget", 0, "Overall wall-clock budget (0 disables)")
	matchDuration := flag.Bool("match-duration", true, "Render candidates as long as the target")
	maxEvals := flag.Int("max-evals", 3000, "Evaluation budget for hillclimb and mayfly")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly round")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 600, "Target eval budget per Mayfly round")
	reportEvery := flag.Int("report-every", 1, "Print progress every N generations")
	reportPath := flag.String("report", "out/report.json", "Report JSON path")
	historyCSV := flag.String("history-csv", "", "Optional per-generation history CSV path")
	outputWAV := flag.String("output-wav", "", "Optional path to write the best candidate WAV")
	flag.Parse()

	settings := preset.DefaultSettings()
	if *presetPath != "" {
		s, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		settings = s
	}

	parsedWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if err := applyFlags(settings, flagOverrides{
		target:         *targetPath,
		metric:         *metric,
		direction:      *direction,
		seed:           *seed,
		population:     *population,
		maxGenerations: *maxGenerations,
		workers:        parsedWorkers,
		timeout:        *timeout,
	}); err != nil {
		die("invalid flags: %v", err)
	}
	if settings.TargetPath == "" {
		die("a target WAV is required (-target or preset \"target\")")
	}
	alg := strings.ToLower(strings.TrimSpace(*algorithm))

	target, err := fitcommon.ReadWAVMono(settings.TargetPath)
	if err != nil {
		die("failed to read target: %v", err)
	}
	target, err = fitcommon.ResampleIfNeeded(target, settings.Synth.SampleRate)
	if err != nil {
		die("failed to resample target: %v", err)
	}
	if *matchDuration {
		settings.Synth.Duration = target.Duration()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeBudget)
		defer cancel()
	}

	cfg := &fitConfig{
		settings:    settings,
		target:      target,
		algorithm:   alg,
		reportEvery: *reportEvery,
		hillClimb:   search.DefaultHillClimbConfig(),
		mayfly: search.MayflyConfig{
			Variant:        *mayflyVariant,
			Population:     *mayflyPop,
			RoundEvals:     *mayflyRoundEvals,
			MaxEvaluations: *maxEvals,
			Seed:           settings.GA.Seed,
		},
	}
	cfg.hillClimb.MaxIterations = *maxEvals
	cfg.hillClimb.Seed = settings.GA.Seed

	fmt.Printf("Fitting %s (%d samples @ %d Hz) with %s, metric=%s direction=%s genes=%d\n",
		settings.TargetPath, target.Len(), target.SampleRate, alg, settings.Metric, settings.GA.Direction, len(settings.Layout))

	started := time.Now()
	result, runErr := runFit(ctx, cfg)
	if result == nil {
		die("fit failed: %v", runErr)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "fit stopped early: %v\n", runErr)
	}
	result.elapsed = time.Since(started).Seconds()

	rep, err := buildReport(cfg, *presetPath, result)
	if err != nil {
		die("failed to build report: %v", err)
	}
	if err := fitcommon.WriteJSON(*reportPath, rep); err != nil {
		die("failed to write report: %v", err)
	}
	if *historyCSV != "" {
		if err := writeHistoryCSV(*historyCSV, result.history); err != nil {
			die("failed to write history: %v", err)
		}
	}
	if *outputWAV != "" {
		if err := writeBestWAV(cfg, rep, *outputWAV); err != nil {
			die("failed to write best wav: %v", err)
		}
	}

	fmt.Printf("Done algorithm=%s stop=%s evals=%d failures=%d elapsed=%.1fs best_fitness=%.6g\n",
		alg, result.stop, result.evaluations, result.failures, result.elapsed, result.bestFitness)
	if result.warning != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", result.warning)
	}
}

type flagOverrides struct {
	target         string
	metric         string
	direction      string
	seed           int64
	population     int
	maxGenerations int
	workers        int
	timeout        time.Duration
}

// applyFlags layers non-zero command-line values over the preset.
func applyFlags(s *preset.Settings, o flagOverrides) error {
	f := &preset.File{
		Target:    o.target,
		Metric:    o.metric,
		Direction: o.direction,
	}
	if o.seed != 0 {
		f.Seed = &o.seed
	}
	if o.population > 0 {
		f.PopulationSize = &o.population
	}
	if o.maxGenerations > 0 {
		f.MaxGenerations = &o.maxGenerations
	}
	if o.workers > 0 {
		f.Workers = &o.workers
	}
	if o.timeout > 0 {
		f.EvaluationTimeout = o.timeout.String()
	}
	return preset.ApplyFile(s, f)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
