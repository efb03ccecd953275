package ga

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError with errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError is returned before a run starts when the configuration
// cannot be used.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ga: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// EvaluationFailure records a genome that could not be rendered or scored.
// It is recovered inside a run and never returned from Run.
type EvaluationFailure struct {
	Index  int
	Genome Genome
	Err    error
}

func (e *EvaluationFailure) Error() string {
	return fmt.Sprintf("ga: evaluation of individual %d failed: %v", e.Index, e.Err)
}

func (e *EvaluationFailure) Unwrap() error {
	return e.Err
}

// ConvergenceWarning is attached to a Result when a target fitness was
// configured but the run ended without reaching it.
type ConvergenceWarning struct {
	Target      float64
	BestFitness float64
	Generations int
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("ga: target fitness %g not reached after %d generations (best %g)",
		w.Target, w.Generations, w.BestFitness)
}
