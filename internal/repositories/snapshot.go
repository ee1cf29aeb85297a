package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/shared"
)

// SnapshotRepository implements models.Repository[*models.SnapshotRecord] for track snapshots.
//
// Bodies are stored as JSON text so any field the service returns survives a round trip.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `id, sequence, run_id, track_id, label, body, created_at, updated_at, deleted_at`

// Create inserts a new snapshot with generated ID and sequence
func (r *SnapshotRepository) Create(snap *models.SnapshotRecord) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	body, err := snap.MarshalBody()
	if err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	snap.SetID(id)
	snap.SetSequence(sequence)

	query := `
		INSERT INTO snapshots (id, sequence, run_id, track_id, label, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		nullString(snap.RunID()),
		snap.TrackID(),
		snap.Label(),
		body,
		snap.CreatedAt(),
		snap.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Get retrieves a snapshot by ID, excluding soft-deleted snapshots
func (r *SnapshotRepository) Get(id string) (*models.SnapshotRecord, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ? AND deleted_at IS NULL`

	snap, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot: %w", shared.ErrRecordNotFound)
	}
	return snap, err
}

// Update rewrites a snapshot's label and body
func (r *SnapshotRepository) Update(snap *models.SnapshotRecord) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	body, err := snap.MarshalBody()
	if err != nil {
		return err
	}

	now := time.Now()
	snap.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE snapshots SET label = ?, body = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		snap.Label(), body, now, snap.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	return expectRow(result, "snapshot", snap.ID())
}

// Delete soft-deletes a snapshot by ID
func (r *SnapshotRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE snapshots SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return expectRow(result, "snapshot", id)
}

// List retrieves snapshots in capture order.
//
// Supported criteria: "run_id", "track_id" and "label" (string).
func (r *SnapshotRepository) List(criteria map[string]any) ([]*models.SnapshotRecord, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE deleted_at IS NULL`
	args := []any{}

	for _, col := range []string{"run_id", "track_id", "label"} {
		if v, ok := criteria[col].(string); ok && v != "" {
			query += " AND " + col + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.SnapshotRecord
	for rows.Next() {
		snap, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return snaps, nil
}

// ForRun returns a [reconcile.SnapshotStore] that files every snapshot under runID.
func (r *SnapshotRepository) ForRun(runID string) reconcile.SnapshotStore {
	return &runSnapshotStore{repo: r, runID: runID}
}

type runSnapshotStore struct {
	repo  *SnapshotRepository
	runID string
}

func (s *runSnapshotStore) SaveSnapshot(label string, rec models.TrackRecord) error {
	return s.repo.Create(models.NewSnapshotRecord(0, s.runID, label, rec))
}

func (r *SnapshotRepository) scan(row scanner) (*models.SnapshotRecord, error) {
	var (
		id        string
		sequence  int
		runID     sql.NullString
		trackID   string
		label     string
		body      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &runID, &trackID, &label, &body, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap := models.NewSnapshotRecord(sequence, runID.String, label, nil)
	if err := snap.UnmarshalBody(body); err != nil {
		return nil, err
	}
	snap.SetID(id)
	snap.SetTrackID(trackID)
	snap.SetCreatedAt(createdAt)
	snap.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		snap.SetDeletedAt(&deletedAt.Time)
	}

	return snap, nil
}
