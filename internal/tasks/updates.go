package tasks

import (
	"fmt"
	"strings"
	"time"
)

// ProgressUpdate represents a progress event during a sequence run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase    Phase  // Run phase
	Sequence string // Name of the sequence the update belongs to
	Step     int    // Current step number, 1-based
	Total    int    // Total steps in the sequence
	Message  string // Human-readable message for display
	Data     any    // Optional phase-specific data for advanced UIs
}

// Run phase enumeration
type Phase int

const (
	SequenceStarted Phase = iota
	StepStarted
	StepPassed
	StepFailed
	StepsSkipped
	SequenceFinished
	BatchProgress
)

func (p Phase) String() string {
	switch p {
	case SequenceStarted:
		return "sequence_started"
	case StepStarted:
		return "step_started"
	case StepPassed:
		return "step_passed"
	case StepFailed:
		return "step_failed"
	case StepsSkipped:
		return "steps_skipped"
	case SequenceFinished:
		return "sequence_finished"
	case BatchProgress:
		return "batch_progress"
	default:
		return ""
	}
}

func sequenceStartedUpdate(seq *Sequence) ProgressUpdate {
	return ProgressUpdate{
		Phase:    SequenceStarted,
		Sequence: seq.Name(),
		Total:    seq.Len(),
		Message:  fmt.Sprintf("Running %s (%d steps)...", seq.Name(), seq.Len()),
	}
}

func stepStartedUpdate(seq *Sequence, step int, s Step) ProgressUpdate {
	return ProgressUpdate{
		Phase:    StepStarted,
		Sequence: seq.Name(),
		Step:     step,
		Total:    seq.Len(),
		Message:  fmt.Sprintf("[%d/%d] %s...", step, seq.Len(), s.Label()),
	}
}

func stepPassedUpdate(seq *Sequence, step int, out StepOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:    StepPassed,
		Sequence: seq.Name(),
		Step:     step,
		Total:    seq.Len(),
		Message:  fmt.Sprintf("[%d/%d] ✓ %s", step, seq.Len(), out.Label()),
		Data:     out,
	}
}

func stepFailedUpdate(seq *Sequence, step int, out StepOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:    StepFailed,
		Sequence: seq.Name(),
		Step:     step,
		Total:    seq.Len(),
		Message:  fmt.Sprintf("[%d/%d] ✗ %s: %v", step, seq.Len(), out.Label(), out.Failure),
		Data:     out,
	}
}

func stepsSkippedUpdate(seq *Sequence, skipped []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    StepsSkipped,
		Sequence: seq.Name(),
		Step:     seq.Len() - len(skipped),
		Total:    seq.Len(),
		Message:  fmt.Sprintf("Skipped %d step(s): %s", len(skipped), strings.Join(skipped, ", ")),
		Data:     skipped,
	}
}

func sequenceFinishedUpdate(seq *Sequence, out *Outcome) ProgressUpdate {
	status := "passed"
	if !out.Succeeded() {
		status = "failed"
	}
	return ProgressUpdate{
		Phase:    SequenceFinished,
		Sequence: seq.Name(),
		Step:     len(out.Steps),
		Total:    seq.Len(),
		Message:  fmt.Sprintf("%s %s in %s", seq.Name(), status, out.Duration().Round(time.Millisecond)),
		Data:     out,
	}
}

func batchProgressUpdate(done, total int, out *Outcome) ProgressUpdate {
	mark := "✓"
	if !out.Succeeded() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:    BatchProgress,
		Sequence: out.Sequence,
		Step:     done,
		Total:    total,
		Message:  fmt.Sprintf("[%d/%d] %s %s", done, total, mark, out.Sequence),
		Data:     out,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
