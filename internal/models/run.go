package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/shared"
)

// Run statuses
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Step statuses
const (
	StepSucceeded = "succeeded"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// RunRecord is the persisted outcome of one workflow sequence execution.
type RunRecord struct {
	entity
	name           string
	status         string
	stepsTotal     int
	stepsSucceeded int
	failedStep     string
	failureKind    string
	errorMessage   string
	startedAt      *time.Time
	completedAt    *time.Time
	steps          []*StepRecord
}

// NewRunRecord creates a pending run for the named sequence.
func NewRunRecord(sequence int, name string, stepsTotal int) *RunRecord {
	return &RunRecord{
		entity:     newEntity(sequence),
		name:       name,
		status:     RunPending,
		stepsTotal: stepsTotal,
	}
}

func (r *RunRecord) Name() string            { return r.name }
func (r *RunRecord) Status() string          { return r.status }
func (r *RunRecord) StepsTotal() int         { return r.stepsTotal }
func (r *RunRecord) StepsSucceeded() int     { return r.stepsSucceeded }
func (r *RunRecord) FailedStep() string      { return r.failedStep }
func (r *RunRecord) FailureKind() string     { return r.failureKind }
func (r *RunRecord) ErrorMessage() string    { return r.errorMessage }
func (r *RunRecord) StartedAt() *time.Time   { return r.startedAt }
func (r *RunRecord) CompletedAt() *time.Time { return r.completedAt }
func (r *RunRecord) Steps() []*StepRecord    { return r.steps }

func (r *RunRecord) SetStatus(status string)      { r.status = status }
func (r *RunRecord) SetStepsTotal(n int)          { r.stepsTotal = n }
func (r *RunRecord) SetStepsSucceeded(n int)      { r.stepsSucceeded = n }
func (r *RunRecord) SetFailedStep(name string)    { r.failedStep = name }
func (r *RunRecord) SetFailureKind(kind string)   { r.failureKind = kind }
func (r *RunRecord) SetErrorMessage(msg string)   { r.errorMessage = msg }
func (r *RunRecord) SetStartedAt(t *time.Time)    { r.startedAt = t }
func (r *RunRecord) SetCompletedAt(t *time.Time)  { r.completedAt = t }
func (r *RunRecord) SetSteps(steps []*StepRecord) { r.steps = steps }

// Start marks the run as running.
func (r *RunRecord) Start() {
	now := time.Now()
	r.status = RunRunning
	r.startedAt = &now
}

// Succeed marks the run complete with every executed step successful.
func (r *RunRecord) Succeed(succeeded int) {
	now := time.Now()
	r.status = RunSucceeded
	r.stepsSucceeded = succeeded
	r.completedAt = &now
}

// Fail marks the run complete, halted at step.
func (r *RunRecord) Fail(succeeded int, step string, f *Failure) {
	now := time.Now()
	r.status = RunFailed
	r.stepsSucceeded = succeeded
	r.failedStep = step
	if f != nil {
		r.failureKind = f.Kind.String()
		r.errorMessage = f.Error()
	}
	r.completedAt = &now
}

// Duration is the wall time between start and completion, or zero if either is unset.
func (r *RunRecord) Duration() time.Duration {
	if r.startedAt == nil || r.completedAt == nil {
		return 0
	}
	return r.completedAt.Sub(*r.startedAt)
}

// Validate checks required fields and status values.
func (r *RunRecord) Validate() error {
	if r.name == "" {
		return fmt.Errorf("%w: run name", shared.ErrMissingArgument)
	}
	switch r.status {
	case RunPending, RunRunning, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("%w: run status %q", shared.ErrInvalidArgument, r.status)
	}
	if r.stepsSucceeded > r.stepsTotal {
		return fmt.Errorf("%w: %d of %d steps succeeded", shared.ErrInvalidArgument, r.stepsSucceeded, r.stepsTotal)
	}
	return nil
}

// StepRecord is one executed (or skipped) step of a run.
type StepRecord struct {
	ID          string
	RunID       string
	Position    int
	Order       string
	Name        string
	Status      string
	FailureKind string
	Detail      string
	Duration    time.Duration
	CreatedAt   time.Time
}
