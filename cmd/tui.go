package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	"github.com/desertthunder/gmx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive scenario picker.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/gmx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	d, err := r.Dispatcher()
	if err != nil {
		return err
	}

	env := r.scenarioEnv(d, "", "", "")
	sequencer := tasks.NewSequencer(r.logger, r.recorder())
	model := ui.NewModel(ctx, env, sequencer, tasks.BatchOpts{
		NumWorkers: r.config.Scenarios.Concurrency,
		RateLimit:  r.config.Scenarios.RateLimit,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
