package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
)

// RunRepository implements models.Repository[*models.RunRecord] for sequence run history.
//
// Steps are stored in run_steps and written together with their run.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, name, status, steps_total, steps_succeeded,
	failed_step, failure_kind, error_message, started_at,
	completed_at, created_at, updated_at, deleted_at
`

// Create inserts a run and its steps with a generated sequence.
//
// A run that already carries an ID (the sequencer's run ID) keeps it so snapshots taken during the run stay linked.
func (r *RunRepository) Create(run *models.RunRecord) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (
			id, sequence, name, status, steps_total, steps_succeeded,
			failed_step, failure_kind, error_message, started_at,
			completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		run.ID(),
		sequence,
		run.Name(),
		run.Status(),
		run.StepsTotal(),
		run.StepsSucceeded(),
		nullString(run.FailedStep()),
		nullString(run.FailureKind()),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertSteps(tx, run.ID(), run.Steps()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertSteps(tx *sql.Tx, runID string, steps []*models.StepRecord) error {
	query := `
		INSERT INTO run_steps (id, run_id, position, step_order, name, status, failure_kind, detail, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, s := range steps {
		if s.ID == "" {
			s.ID = shared.GenerateID()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		s.RunID = runID

		_, err := tx.Exec(query,
			s.ID,
			runID,
			s.Position,
			s.Order,
			s.Name,
			s.Status,
			nullString(s.FailureKind),
			nullString(s.Detail),
			s.Duration.Milliseconds(),
			s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %s_%s: %w", s.Order, s.Name, err)
		}
	}
	return nil
}

// Get retrieves a run by ID with its steps, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`

	run, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	steps, err := r.Steps(id)
	if err != nil {
		return nil, err
	}
	run.SetSteps(steps)
	return run, nil
}

// Update modifies the status and counters of an existing run. Steps are not rewritten.
func (r *RunRepository) Update(run *models.RunRecord) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, steps_total = ?, steps_succeeded = ?, failed_step = ?,
			failure_kind = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.StepsTotal(),
		run.StepsSucceeded(),
		nullString(run.FailedStep()),
		nullString(run.FailureKind()),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return expectRow(result, "run", run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return expectRow(result, "run", id)
}

// List retrieves runs matching the given criteria, newest first, without their steps.
//
// Supported criteria: "name" and "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Steps retrieves the recorded steps of a run in execution order.
func (r *RunRepository) Steps(runID string) ([]*models.StepRecord, error) {
	query := `
		SELECT id, run_id, position, step_order, name, status, failure_kind, detail, duration_ms, created_at
		FROM run_steps
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.StepRecord
	for rows.Next() {
		var (
			s           models.StepRecord
			failureKind sql.NullString
			detail      sql.NullString
			durationMS  int64
		)
		err := rows.Scan(&s.ID, &s.RunID, &s.Position, &s.Order, &s.Name, &s.Status, &failureKind, &detail, &durationMS, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}
		s.FailureKind = failureKind.String
		s.Detail = detail.String
		s.Duration = time.Duration(durationMS) * time.Millisecond
		steps = append(steps, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return steps, nil
}

// scanOne scans a single [sql.Row] into a [models.RunRecord]
func (r *RunRepository) scanOne(row *sql.Row) (*models.RunRecord, error) {
	run, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run: %w", shared.ErrRecordNotFound)
	}
	return run, err
}

func (r *RunRepository) scan(row scanner) (*models.RunRecord, error) {
	var (
		id             string
		sequence       int
		name           string
		status         string
		stepsTotal     int
		stepsSucceeded int
		failedStep     sql.NullString
		failureKind    sql.NullString
		errorMessage   sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &name, &status, &stepsTotal, &stepsSucceeded,
		&failedStep, &failureKind, &errorMessage, &startedAt,
		&completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRunRecord(sequence, name, stepsTotal)
	run.SetID(id)
	run.SetStatus(status)
	run.SetStepsSucceeded(stepsSucceeded)
	run.SetFailedStep(failedStep.String)
	run.SetFailureKind(failureKind.String)
	run.SetErrorMessage(errorMessage.String)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if startedAt.Valid {
		run.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
