package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/dispatch"
	"github.com/desertthunder/gmx/internal/formatter"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/repositories"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryRuns lists recorded runs, newest first.
func (r *Runner) HistoryRuns(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if name := cmd.String("name"); name != "" {
		criteria["name"] = name
	}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID          string     `json:"id"`
			Name        string     `json:"name"`
			Status      string     `json:"status"`
			Steps       int        `json:"steps_succeeded"`
			Total       int        `json:"steps_total"`
			FailedStep  string     `json:"failed_step,omitempty"`
			FailureKind string     `json:"failure_kind,omitempty"`
			StartedAt   *time.Time `json:"started_at,omitempty"`
		}
		rows := make([]row, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, row{run.ID(), run.Name(), run.Status(), run.StepsSucceeded(), run.StepsTotal(),
				run.FailedStep(), run.FailureKind(), run.StartedAt()})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	return r.writeBytes(formatter.RunsToText(runs, time.Now()))
}

// HistoryShow prints one run with its steps and the snapshots taken during it.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := requireArg("run id", id); err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	run, err := repositories.NewRunRepository(db).Get(id)
	if err != nil {
		return err
	}

	snapshots, err := repositories.NewSnapshotRepository(db).List(map[string]any{"run_id": id})
	if err != nil {
		return err
	}

	return r.writeBytes(formatter.RunToText(run, snapshots))
}

// HistoryLeftovers lists unresolved leftovers.
func (r *Runner) HistoryLeftovers(ctx context.Context, cmd *cli.Command) error {
	leftovers, err := r.leftovers(cmd.String("kind"))
	if err != nil {
		return err
	}
	return r.writeBytes(formatter.LeftoversToText(leftovers, time.Now()))
}

func (r *Runner) leftovers(kind string) ([]*models.Leftover, error) {
	criteria := map[string]any{}
	switch kind {
	case "":
	case models.LeftoverPlaylist, models.LeftoverTrack:
		criteria["kind"] = kind
	default:
		return nil, fmt.Errorf("%w: kind must be %q or %q", shared.ErrInvalidArgument, models.LeftoverPlaylist, models.LeftoverTrack)
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewLeftoverRepository(db).List(criteria)
}

// Cleanup deletes recorded leftovers from the service and marks them resolved.
//
// An entity no longer listed by the service counts as cleaned up. Failed deletes leave the
// leftover recorded and are reported together at the end.
func (r *Runner) Cleanup(ctx context.Context, cmd *cli.Command) error {
	leftovers, err := r.leftovers(cmd.String("kind"))
	if err != nil {
		return err
	}
	if len(leftovers) == 0 {
		return r.writePlain("Nothing to clean up.\n")
	}

	if cmd.Bool("dry-run") {
		r.writePlain("Would delete %d leftover(s):\n", len(leftovers))
		return r.writeBytes(formatter.LeftoversToText(leftovers, time.Now()))
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	repo := repositories.NewLeftoverRepository(db)

	live, err := r.liveIDs(ctx, d)
	if err != nil {
		return err
	}

	var errs []error
	cleaned := 0
	for _, l := range leftovers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if !live[l.Kind()][l.ServiceID()] {
			r.logger.Info("leftover already gone", "kind", l.Kind(), "id", l.ServiceID())
		} else {
			if l.Kind() == models.LeftoverPlaylist {
				err = d.DeletePlaylist(ctx, l.ServiceID())
			} else {
				err = d.DeleteTrack(ctx, l.ServiceID())
			}
			if err != nil {
				r.writePlain("  ✗ %s %s: %v\n", l.Kind(), l.ServiceID(), err)
				errs = append(errs, fmt.Errorf("%s %s: %w", l.Kind(), l.ServiceID(), err))
				continue
			}
		}

		if err := repo.Resolve(l.Kind(), l.ServiceID()); err != nil {
			errs = append(errs, err)
			continue
		}
		cleaned++
		r.writePlain("  ✓ %s %s %q\n", l.Kind(), l.ServiceID(), l.Name())
	}

	r.writePlainln("Cleaned up %d of %d leftover(s)", cleaned, len(leftovers))
	return errors.Join(errs...)
}

// liveIDs returns the ids of every playlist and track currently on the service, by leftover kind.
func (r *Runner) liveIDs(ctx context.Context, d *dispatch.Dispatcher) (map[string]map[string]bool, error) {
	live := map[string]map[string]bool{
		models.LeftoverPlaylist: {},
		models.LeftoverTrack:    {},
	}

	playlists, err := d.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		live[models.LeftoverPlaylist][p.ID] = true
	}

	library, err := d.ListLibrary(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range library {
		live[models.LeftoverTrack][rec.ID()] = true
	}
	return live, nil
}
