package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// Fetcher re-reads the authoritative record for a track.
// A track the service no longer has must come back as an EntityVanished failure.
type Fetcher interface {
	FetchTrack(ctx context.Context, id string) (models.TrackRecord, error)
}

// SnapshotStore keeps the records seen around a verification.
type SnapshotStore interface {
	SaveSnapshot(label string, rec models.TrackRecord) error
}

// ComparisonReport is the outcome of one verification. It never decides pass or fail for the caller.
type ComparisonReport struct {
	EntityID  string
	Fields    []FieldComparison
	Predicted models.TrackRecord
	Observed  models.TrackRecord
	Vanished  bool
	Attempts  int
	Elapsed   time.Duration
	Failure   *models.Failure // Unsatisfied, EntityVanished or the failure that stopped polling
}

// Satisfied reports whether the entity was found and every asserted field matched.
func (r *ComparisonReport) Satisfied() bool {
	if r.Vanished || len(r.Fields) == 0 {
		return false
	}
	for _, f := range r.Fields {
		if !f.Satisfied {
			return false
		}
	}
	return true
}

// Mismatches returns the asserted fields that did not match.
func (r *ComparisonReport) Mismatches() []FieldComparison {
	var out []FieldComparison
	for _, f := range r.Fields {
		if !f.Satisfied {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the comparison for name.
func (r *ComparisonReport) Field(name string) (FieldComparison, bool) {
	for _, f := range r.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldComparison{}, false
}

// Err returns the recorded failure, or nil when the report is satisfied.
func (r *ComparisonReport) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Reconciler verifies that a mutation became visible the way the taxonomy predicts.
type Reconciler struct {
	fetch     Fetcher
	tax       *taxonomy.Taxonomy
	logger    *log.Logger
	snapshots SnapshotStore
}

// New creates a reconciler reading through fetch. A nil taxonomy uses [taxonomy.Default].
func New(fetch Fetcher, tax *taxonomy.Taxonomy, logger *log.Logger) *Reconciler {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Reconciler{fetch: fetch, tax: tax, logger: logger}
}

// WithSnapshots returns a copy of the reconciler that records before, predicted and after records in store.
func (r *Reconciler) WithSnapshots(store SnapshotStore) *Reconciler {
	c := *r
	c.snapshots = store
	return &c
}

// Verify waits for the settle interval, then re-fetches the entity and compares it with the prediction, polling
// with capped backoff until every asserted field matches or MaxWait runs out.
//
// The report is returned in every case. The error is non-nil only when verification could not be carried out:
// an invalid mutation, a taxonomy gap, a fetch failure other than EntityVanished, or cancellation.
// A vanished entity and a mismatch after MaxWait are recorded on the report with a nil error.
func (r *Reconciler) Verify(ctx context.Context, m *models.PendingMutation, opts Options) (*ComparisonReport, error) {
	report := &ComparisonReport{EntityID: m.EntityID}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()

	if err := m.Validate(); err != nil {
		report.Failure = models.WrapFailure(models.Invalid, "verify", err)
		return report, report.Failure
	}

	predicted, err := Predict(r.tax, m.Before, m.Delta)
	if err != nil {
		report.Failure = models.WrapFailure(models.KindOf(err), "verify", err)
		return report, report.Failure
	}
	report.Predicted = predicted
	r.save(models.SnapshotBefore, m.Before)
	r.save(models.SnapshotPredicted, predicted)

	settle := m.Settle
	if settle <= 0 {
		settle = opts.Settle
	}
	deadline := start.Add(max(opts.MaxWait, settle))
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultOptions().PollInterval
	}

	logger := r.logger.With("track", m.EntityID)
	logger.Debug("waiting for mutation to settle", "settle", settle)

	if !sleep(ctx, settle) {
		return r.cancelled(ctx, report)
	}

	for {
		report.Attempts++
		observed, err := r.fetch.FetchTrack(ctx, m.EntityID)
		if err != nil {
			f, ok := models.AsFailure(err)
			if !ok {
				f = models.WrapFailure(models.KindOf(err), "verify", err)
			}
			report.Failure = f
			if f.Kind == models.EntityVanished {
				report.Vanished = true
				logger.Warn("entity vanished during verification", "attempt", report.Attempts)
				return report, nil
			}
			if ctx.Err() != nil {
				return r.cancelled(ctx, report)
			}
			return report, f
		}

		fields, err := Compare(r.tax, m.Before, m.Delta, observed)
		if err != nil {
			report.Failure = models.WrapFailure(models.KindOf(err), "verify", err)
			return report, report.Failure
		}
		report.Fields = fields
		report.Observed = observed

		if report.Satisfied() {
			report.Failure = nil
			logger.Debug("mutation verified", "attempt", report.Attempts)
			break
		}

		mismatched := report.Mismatches()
		logger.Debug("mutation not yet visible", "attempt", report.Attempts, "mismatched", len(mismatched))

		if time.Now().Add(interval).After(deadline) {
			report.Failure = models.NewFailure(models.Unsatisfied, "verify", "%d field(s) did not match after %d attempt(s), first %s",
				len(mismatched), report.Attempts, describe(mismatched[0]))
			break
		}
		if !sleep(ctx, interval) {
			return r.cancelled(ctx, report)
		}
		interval = opts.next(interval)
	}

	r.save(models.SnapshotAfter, report.Observed)
	return report, nil
}

func (r *Reconciler) cancelled(ctx context.Context, report *ComparisonReport) (*ComparisonReport, error) {
	err := fmt.Errorf("verification of %s abandoned: %w", report.EntityID, context.Cause(ctx))
	report.Failure = models.WrapFailure(models.Transport, "verify", err)
	return report, err
}

func (r *Reconciler) save(label string, rec models.TrackRecord) {
	if r.snapshots == nil || rec == nil {
		return
	}
	if err := r.snapshots.SaveSnapshot(label, rec); err != nil {
		r.logger.Warn("failed to save snapshot", "label", label, "err", err)
	}
}

func describe(f FieldComparison) string {
	return fmt.Sprintf("%s (%s): expected %v, observed %v", f.Field, f.Relation, f.Expected, f.Observed)
}
