package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/gmx/internal/dispatch"
	"github.com/desertthunder/gmx/internal/formatter"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ScenarioList prints the built-in scenarios.
func (r *Runner) ScenarioList(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("Available scenarios:\n\n")
	for _, s := range tasks.Scenarios() {
		r.writePlain("  %-20s %s\n", s.Name, s.Description)
	}
	return nil
}

// scenarioEnv collects scenario inputs from flags, falling back to [scenarios].
func (r *Runner) scenarioEnv(d *dispatch.Dispatcher, songID, file, query string) *tasks.Env {
	rec, opts := r.reconciler(d)
	env := &tasks.Env{
		Dispatcher: d,
		Reconciler: rec,
		Options:    opts,
		SongID:     r.config.Scenarios.SongID,
		Query:      query,
		ExactNames: r.config.Scenarios.ExactNames,
	}
	if songID != "" {
		env.SongID = songID
	}

	if file == "" {
		file = r.config.Scenarios.UploadFile
	}
	if file != "" {
		if _, err := os.Stat(file); err == nil {
			env.UploadFile = services.NewLocalFile(file)
		} else {
			r.logger.Warn("upload file not readable", "path", file, "error", err)
		}
	}
	return env
}

// ScenarioRun builds the named scenarios and runs them, printing live step progress, then the
// outcome of each run. The command fails when any run failed.
func (r *Runner) ScenarioRun(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if cmd.Bool("all") {
		names = nil
	} else if len(names) == 0 {
		return fmt.Errorf("%w: name at least one scenario or pass --all", shared.ErrMissingArgument)
	}

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	env := r.scenarioEnv(d, cmd.String("song"), cmd.String("file"), cmd.String("query"))
	if cmd.Bool("exact-names") {
		env.ExactNames = true
	}
	seqs, errs := tasks.BuildAll(env, names...)
	for _, err := range errs {
		r.logger.Warn("scenario not run", "error", err)
	}
	if len(seqs) == 0 {
		return errors.Join(errs...)
	}

	concurrency := int(cmd.Int("concurrency"))
	if concurrency <= 0 {
		concurrency = r.config.Scenarios.Concurrency
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.printProgress(u)
		}
	}()

	sequencer := tasks.NewSequencer(r.logger, r.recorder())
	res := sequencer.RunAll(ctx, progress, seqs, tasks.BatchOpts{
		NumWorkers: concurrency,
		RateLimit:  r.config.Scenarios.RateLimit,
	})
	close(progress)
	<-done

	r.writePlain("\n")
	if err := r.emit(cmd, "scenarios", func(f formatter.Format) ([]byte, error) {
		if len(res.Outcomes) == 1 {
			return formatter.RenderOutcome(res.Outcomes[0], f)
		}
		return formatter.RenderBatch(res, f)
	}); err != nil {
		return err
	}

	var failed []error
	for _, o := range res.Outcomes {
		if err := o.Err(); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", o.Sequence, err))
		}
	}
	return errors.Join(append(failed, errs...)...)
}

func (r *Runner) printProgress(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.StepStarted, tasks.BatchProgress:
		return
	case tasks.StepPassed, tasks.StepFailed, tasks.StepsSkipped:
		r.writePlain("  %s: %s\n", u.Sequence, u.Message)
	default:
		r.writePlain("%s\n", u.Message)
	}
}
