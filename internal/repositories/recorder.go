package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/tasks"
)

// RunRecorder implements tasks.RunRecorder on top of the run, snapshot and leftover repositories.
//
// Leftovers are deduplicated via the kind+service_id constraint; a remote entity already on record is not an error.
type RunRecorder struct {
	runs      *RunRepository
	snapshots *SnapshotRepository
	leftovers *LeftoverRepository
}

// NewRunRecorder creates a RunRecorder with repositories sharing db
func NewRunRecorder(db *sql.DB) *RunRecorder {
	return &RunRecorder{
		runs:      NewRunRepository(db),
		snapshots: NewSnapshotRepository(db),
		leftovers: NewLeftoverRepository(db),
	}
}

// RecordOutcome stores the run, one step row per executed or skipped step, and any leftovers.
func (a *RunRecorder) RecordOutcome(o *tasks.Outcome) error {
	run := RunFromOutcome(o)
	if err := a.runs.Create(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	var errs []error
	for _, e := range o.Leftovers {
		l := models.NewLeftover(0, run.ID(), e.Kind, e.ID, e.Name)
		if err := a.leftovers.Create(l); err != nil && !strings.Contains(err.Error(), "UNIQUE constraint") {
			errs = append(errs, fmt.Errorf("failed to record leftover %s %s: %w", e.Kind, e.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshots implements tasks.RunRecorder.
func (a *RunRecorder) Snapshots(runID string) reconcile.SnapshotStore {
	return a.snapshots.ForRun(runID)
}

// RunFromOutcome converts a sequence outcome into a persistable run with its steps.
func RunFromOutcome(o *tasks.Outcome) *models.RunRecord {
	run := models.NewRunRecord(0, o.Sequence, o.Total)
	run.SetID(o.RunID)

	var steps []*models.StepRecord
	for _, s := range o.Steps {
		rec := &models.StepRecord{
			Position: s.Position,
			Order:    s.Order,
			Name:     s.Name,
			Status:   models.StepSucceeded,
			Duration: s.Duration,
		}
		if !s.OK() {
			rec.Status = models.StepFailed
			rec.FailureKind = s.Failure.Kind.String()
			rec.Detail = s.Failure.Error()
		}
		steps = append(steps, rec)
	}
	for i, label := range o.Skipped {
		order, name, _ := strings.Cut(label, "_")
		steps = append(steps, &models.StepRecord{
			Position: len(o.Steps) + i + 1,
			Order:    order,
			Name:     name,
			Status:   models.StepSkipped,
		})
	}
	run.SetSteps(steps)

	if f := o.Failed(); f != nil {
		run.Fail(o.Passed(), f.Label(), f.Failure)
	} else if o.Succeeded() {
		run.Succeed(o.Passed())
	} else {
		run.SetStatus(models.RunFailed)
		run.SetStepsSucceeded(o.Passed())
	}

	started, completed := o.StartedAt, o.CompletedAt
	run.SetStartedAt(&started)
	if !completed.IsZero() {
		run.SetCompletedAt(&completed)
	}
	return run
}

var _ tasks.RunRecorder = (*RunRecorder)(nil)
