package ga

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cwbudde/algo-synthga/waveform"
)

// Renderer turns a genome into a waveform. It must be safe for concurrent
// use and should honour ctx cancellation.
type Renderer interface {
	Render(ctx context.Context, g Genome) (waveform.Waveform, error)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, g Genome) (waveform.Waveform, error)

func (f RenderFunc) Render(ctx context.Context, g Genome) (waveform.Waveform, error) {
	return f(ctx, g)
}

// Evaluation is the outcome of scoring one genome.
type Evaluation struct {
	Score float64
	Err   error
}

// Scorer renders and evaluates genomes on a bounded worker pool.
type Scorer struct {
	renderer  Renderer
	evaluator *Evaluator
	workers   int
	timeout   time.Duration
}

// NewScorer returns a scorer. workers <= 0 uses GOMAXPROCS; timeout 0
// disables the per-evaluation deadline.
func NewScorer(r Renderer, e *Evaluator, workers int, timeout time.Duration) (*Scorer, error) {
	if r == nil {
		return nil, configErr("Renderer", "renderer is nil")
	}
	if e == nil {
		return nil, configErr("Evaluator", "evaluator is nil")
	}
	if timeout < 0 {
		return nil, configErr("EvaluationTimeout", fmt.Sprintf("must be >= 0 (got %s)", timeout))
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scorer{renderer: r, evaluator: e, workers: workers, timeout: timeout}, nil
}

func (s *Scorer) Direction() Direction { return s.evaluator.Direction() }

func (s *Scorer) Evaluator() *Evaluator { return s.evaluator }

func (s *Scorer) Workers() int { return s.workers }

// ScoreOne renders and evaluates a single genome on the calling goroutine.
// Failures return the worst score and a non-nil error.
func (s *Scorer) ScoreOne(ctx context.Context, g Genome) (float64, error) {
	w, err := s.render(ctx, g)
	if err != nil {
		return s.evaluator.Worst(), err
	}
	return s.evaluator.Evaluate(w)
}

// ScoreAll scores every genome in parallel. Result i belongs to genomes[i].
func (s *Scorer) ScoreAll(ctx context.Context, genomes []Genome) []Evaluation {
	out := make([]Evaluation, len(genomes))
	if len(genomes) == 0 {
		return out
	}
	workers := s.workers
	if workers > len(genomes) {
		workers = len(genomes)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				score, err := s.ScoreOne(ctx, genomes[i])
				out[i] = Evaluation{Score: score, Err: err}
			}
		}()
	}
	for i := range genomes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

type renderResult struct {
	w   waveform.Waveform
	err error
}

// render calls the renderer under the per-evaluation timeout and converts
// panics into errors. On timeout the render goroutine is abandoned and left
// to observe the cancelled context.
func (s *Scorer) render(ctx context.Context, g Genome) (waveform.Waveform, error) {
	if s.timeout <= 0 {
		return s.safeRender(ctx, g)
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan renderResult, 1)
	go func() {
		w, err := s.safeRender(rctx, g)
		done <- renderResult{w: w, err: err}
	}()
	select {
	case r := <-done:
		return r.w, r.err
	case <-rctx.Done():
		return waveform.Waveform{}, fmt.Errorf("render timed out after %s: %w", s.timeout, rctx.Err())
	}
}

func (s *Scorer) safeRender(ctx context.Context, g Genome) (w waveform.Waveform, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	w, err = s.renderer.Render(ctx, g.Clone())
	if err != nil {
		return waveform.Waveform{}, fmt.Errorf("render: %w", err)
	}
	return w, nil
}
