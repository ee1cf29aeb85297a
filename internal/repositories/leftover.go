package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
)

// LeftoverRepository implements models.Repository[*models.Leftover] for remote entities that halted runs left behind.
//
// Resolving a leftover soft-deletes it, so List only returns what still needs cleaning up.
type LeftoverRepository struct {
	db *sql.DB
}

// NewLeftoverRepository creates a new LeftoverRepository with the given database connection
func NewLeftoverRepository(db *sql.DB) *LeftoverRepository {
	return &LeftoverRepository{db: db}
}

const leftoverColumns = `id, sequence, run_id, kind, service_id, name, created_at, updated_at, deleted_at`

// Create inserts a new leftover with generated ID and sequence
func (r *LeftoverRepository) Create(l *models.Leftover) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "leftovers")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	l.SetID(id)
	l.SetSequence(sequence)

	query := `
		INSERT INTO leftovers (id, sequence, run_id, kind, service_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		nullString(l.RunID()),
		l.Kind(),
		l.ServiceID(),
		l.Name(),
		l.CreatedAt(),
		l.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leftover: %w", err)
	}

	return nil
}

// Get retrieves an unresolved leftover by ID
func (r *LeftoverRepository) Get(id string) (*models.Leftover, error) {
	query := `SELECT ` + leftoverColumns + ` FROM leftovers WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves an unresolved leftover by kind and remote ID
func (r *LeftoverRepository) GetByServiceID(kind, serviceID string) (*models.Leftover, error) {
	query := `SELECT ` + leftoverColumns + ` FROM leftovers WHERE kind = ? AND service_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, kind, serviceID))
}

// Update records a new name for a leftover, e.g. after a later run renamed it
func (r *LeftoverRepository) Update(l *models.Leftover) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	l.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE leftovers SET name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		l.Name(), now, l.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update leftover: %w", err)
	}
	return expectRow(result, "leftover", l.ID())
}

// Delete marks a leftover resolved by ID
func (r *LeftoverRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE leftovers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve leftover: %w", err)
	}
	return expectRow(result, "leftover", id)
}

// Resolve marks the leftover for a remote entity resolved, once it has been deleted from the service
func (r *LeftoverRepository) Resolve(kind, serviceID string) error {
	result, err := r.db.Exec(
		`UPDATE leftovers SET deleted_at = ? WHERE kind = ? AND service_id = ? AND deleted_at IS NULL`,
		time.Now(), kind, serviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve leftover: %w", err)
	}
	return expectRow(result, "leftover", kind+"/"+serviceID)
}

// List retrieves unresolved leftovers, oldest first.
//
// Supported criteria: "kind" and "run_id" (string).
func (r *LeftoverRepository) List(criteria map[string]any) ([]*models.Leftover, error) {
	query := `SELECT ` + leftoverColumns + ` FROM leftovers WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leftovers: %w", err)
	}
	defer rows.Close()

	var leftovers []*models.Leftover
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		leftovers = append(leftovers, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return leftovers, nil
}

// scanOne scans a single row into a [models.Leftover]
func (r *LeftoverRepository) scanOne(row *sql.Row) (*models.Leftover, error) {
	l, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leftover: %w", shared.ErrRecordNotFound)
	}
	return l, err
}

func (r *LeftoverRepository) scan(row scanner) (*models.Leftover, error) {
	var (
		id        string
		sequence  int
		runID     sql.NullString
		kind      string
		serviceID string
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &runID, &kind, &serviceID, &name, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan leftover: %w", err)
	}

	l := models.NewLeftover(sequence, runID.String, kind, serviceID, name)
	l.SetID(id)
	l.SetCreatedAt(createdAt)
	l.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		l.SetDeletedAt(&deletedAt.Time)
	}

	return l, nil
}
