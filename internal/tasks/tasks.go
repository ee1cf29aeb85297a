// package tasks implements the workflow sequencer and the verification scenarios built on it.
//
// The core abstraction is Sequence, an ordered list of steps sharing State. A Sequencer runs sequences, halting at
// the first failure, and emits progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/shared"
)

// RunRecorder persists run outcomes.
//
// Recording is best effort: errors are logged and never change an outcome.
type RunRecorder interface {
	RecordOutcome(o *Outcome) error
	// Snapshots returns the store for track snapshots taken during runID, or nil.
	Snapshots(runID string) reconcile.SnapshotStore
}

// Sequencer runs sequences. It holds no per-run state and is safe for concurrent use.
type Sequencer struct {
	logger   *log.Logger
	recorder RunRecorder
}

// NewSequencer creates a sequencer. Both arguments may be nil.
func NewSequencer(logger *log.Logger, recorder RunRecorder) *Sequencer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Sequencer{logger: logger, recorder: recorder}
}

// Run executes seq's steps strictly in order with fresh [State].
//
// The first failing step halts the run. Nothing is rolled back: entities the run created and did not remove are
// reported as leftovers. The outcome lists only executed steps; the rest are named in Skipped.
func (s *Sequencer) Run(ctx context.Context, seq *Sequence, progress chan<- ProgressUpdate) *Outcome {
	runID := shared.GenerateID()
	st := NewState(runID)
	if s.recorder != nil {
		st.snapshot = s.recorder.Snapshots(runID)
	}

	out := &Outcome{RunID: runID, Sequence: seq.Name(), Total: seq.Len(), StartedAt: time.Now()}
	logger := s.logger.With("sequence", seq.Name(), "run", runID)

	sendProgress(progress, sequenceStartedUpdate(seq))
	logger.Info("sequence started", "steps", seq.Len())

	for i, step := range seq.steps {
		pos := i + 1
		sendProgress(progress, stepStartedUpdate(seq, pos, step))
		logger.Debug("step started", "step", step.Label())

		start := time.Now()
		err := ctx.Err()
		if err == nil {
			err = step.Run(ctx, st)
		}

		so := StepOutcome{
			Position: pos,
			Order:    step.Order,
			Name:     step.Name,
			Duration: time.Since(start),
			Failure:  asFailure(step.Name, err),
		}
		out.Steps = append(out.Steps, so)

		if so.OK() {
			sendProgress(progress, stepPassedUpdate(seq, pos, so))
			logger.Debug("step passed", "step", step.Label(), "took", so.Duration)
			continue
		}

		sendProgress(progress, stepFailedUpdate(seq, pos, so))
		logger.Warn("step failed", "step", step.Label(), "kind", so.Failure.Kind, "err", so.Failure.Detail)

		for _, rest := range seq.steps[pos:] {
			out.Skipped = append(out.Skipped, rest.Label())
		}
		if len(out.Skipped) > 0 {
			sendProgress(progress, stepsSkippedUpdate(seq, out.Skipped))
		}
		break
	}

	out.Leftovers = st.Pending()
	out.Reports = st.Reports()
	out.CompletedAt = time.Now()

	if len(out.Leftovers) > 0 {
		logger.Warn("run left remote entities behind", "count", len(out.Leftovers))
	}
	logger.Info("sequence finished", "passed", out.Passed(), "total", out.Total, "took", out.Duration())

	if s.recorder != nil {
		if err := s.recorder.RecordOutcome(out); err != nil {
			logger.Warn("failed to record outcome", "err", err)
		}
	}

	sendProgress(progress, sequenceFinishedUpdate(seq, out))
	return out
}

func asFailure(step string, err error) *models.Failure {
	if err == nil {
		return nil
	}
	if f, ok := models.AsFailure(err); ok {
		return f
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.WrapFailure(models.Transport, step, fmt.Errorf("run cancelled: %w", err))
	}
	return models.WrapFailure(models.KindOf(err), step, err)
}

// BatchOpts contains configuration for running independent sequences together.
type BatchOpts struct {
	NumWorkers int     // Concurrent runs (default: 2, max: 8)
	RateLimit  float64 // Run starts per second (default: 2)
}

// BatchResult holds one outcome per sequence, in input order.
type BatchResult struct {
	Outcomes  []*Outcome
	Succeeded int
	Failed    int
}

// RunAll runs independent sequences concurrently with paced starts.
//
// A failing sequence never stops the others; every sequence gets an outcome. Sequences not started before ctx is done
// are reported with a cancelled first step.
func (s *Sequencer) RunAll(ctx context.Context, progress chan<- ProgressUpdate, seqs []*Sequence, opts BatchOpts) *BatchResult {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	result := &BatchResult{Outcomes: make([]*Outcome, len(seqs))}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	type job struct {
		index int
		seq   *Sequence
	}
	jobs := make(chan job)

	var mu sync.Mutex
	done := 0
	finish := func(i int, out *Outcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Outcomes[i] = out
		done++
		if out.Succeeded() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		sendProgress(progress, batchProgressUpdate(done, len(seqs), out))
	}

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				finish(j.index, s.Run(ctx, j.seq, progress))
			}
		}()
	}

	next := 0
	for ; next < len(seqs); next++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		jobs <- job{index: next, seq: seqs[next]}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(seqs); i++ {
		finish(i, cancelledOutcome(seqs[i], context.Cause(ctx)))
	}
	return result
}

func cancelledOutcome(seq *Sequence, cause error) *Outcome {
	now := time.Now()
	out := &Outcome{Sequence: seq.Name(), Total: seq.Len(), StartedAt: now, CompletedAt: now}
	if seq.Len() == 0 {
		return out
	}
	if cause == nil {
		cause = context.Canceled
	}
	first := seq.steps[0]
	out.Steps = []StepOutcome{{
		Position: 1,
		Order:    first.Order,
		Name:     first.Name,
		Failure:  asFailure(first.Name, cause),
	}}
	for _, rest := range seq.steps[1:] {
		out.Skipped = append(out.Skipped, rest.Label())
	}
	return out
}
