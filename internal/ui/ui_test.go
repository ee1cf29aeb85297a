package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmx/internal/dispatch"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	tu "github.com/desertthunder/gmx/internal/testing"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()

	fake := tu.NewFakeService(nil, 0)
	fake.Seed(
		tu.NewTrack("42", "A", "Band", "LP"),
		tu.NewTrack("43", "Eleven", "Other Band", "EP"),
	)
	d := dispatch.New(fake, nil, nil, nil)
	env := &tasks.Env{
		Dispatcher: d,
		Reconciler: reconcile.New(d, nil, nil),
		Options: reconcile.Options{
			Settle:       time.Millisecond,
			MaxWait:      time.Second,
			PollInterval: 5 * time.Millisecond,
			Backoff:      2,
			MaxInterval:  50 * time.Millisecond,
		},
		SongID: "42",
	}

	m := NewModel(context.Background(), env, tasks.NewSequencer(shared.DiscardLogger(), nil), tasks.BatchOpts{NumWorkers: 2, RateLimit: 100})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func press(m *Model, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func TestScenarioItems(t *testing.T) {
	items := scenarioItems()
	if len(items) != len(tasks.Scenarios()) {
		t.Fatalf("expected %d items, got %d", len(tasks.Scenarios()), len(items))
	}

	item := items[0].(scenarioItem)
	if item.Title() != tasks.ScenarioPlaylist {
		t.Errorf("expected %s first, got %s", tasks.ScenarioPlaylist, item.Title())
	}
	if item.FilterValue() != item.Title() {
		t.Error("expected filter value to be the scenario name")
	}
	if item.Description() == "" {
		t.Error("expected a description")
	}
}

func TestNavigation(t *testing.T) {
	t.Run("enter selects the highlighted scenario", func(t *testing.T) {
		m := newTestModel(t)

		press(m, "enter")
		if m.view != ConfirmView {
			t.Fatalf("expected ConfirmView, got %v", m.view)
		}
		if len(m.selected) != 1 || m.selected[0] != tasks.ScenarioPlaylist {
			t.Errorf("expected %s selected, got %v", tasks.ScenarioPlaylist, m.selected)
		}
		if !strings.Contains(m.View(), "Run "+tasks.ScenarioPlaylist+"?") {
			t.Errorf("expected confirmation prompt, got %q", m.View())
		}
	})

	t.Run("a selects every scenario", func(t *testing.T) {
		m := newTestModel(t)

		press(m, "a")
		if m.view != ConfirmView {
			t.Fatalf("expected ConfirmView, got %v", m.view)
		}
		if m.selected != nil {
			t.Errorf("expected nil selection, got %v", m.selected)
		}
		if !strings.Contains(m.View(), "all scenarios") {
			t.Errorf("expected all scenarios prompt, got %q", m.View())
		}
	})

	t.Run("n returns to the list", func(t *testing.T) {
		m := newTestModel(t)

		press(m, "a")
		press(m, "n")
		if m.view != ScenarioListView {
			t.Errorf("expected ScenarioListView, got %v", m.view)
		}
	})

	t.Run("q quits from the list", func(t *testing.T) {
		m := newTestModel(t)

		cmd := press(m, "q")
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestProgress(t *testing.T) {
	t.Run("started steps stay out of the log", func(t *testing.T) {
		m := newTestModel(t)

		m.applyProgress(tasks.ProgressUpdate{Phase: tasks.StepStarted, Sequence: "search", Message: "Step 1/2: query"})
		if len(m.log) != 0 {
			t.Errorf("expected empty log, got %v", m.log)
		}
		if m.current.Message != "Step 1/2: query" {
			t.Errorf("expected current step message, got %q", m.current.Message)
		}

		m.applyProgress(tasks.ProgressUpdate{Phase: tasks.StepPassed, Sequence: "search", Message: "✓ 1_query"})
		if len(m.log) != 1 || m.log[0] != "  search: ✓ 1_query" {
			t.Errorf("expected passed step logged, got %v", m.log)
		}
	})

	t.Run("log keeps the latest lines", func(t *testing.T) {
		m := newTestModel(t)

		for range logLines + 5 {
			m.applyProgress(tasks.ProgressUpdate{Phase: tasks.SequenceStarted, Message: "started"})
		}
		if len(m.log) != logLines {
			t.Errorf("expected %d lines, got %d", logLines, len(m.log))
		}
	})

	t.Run("waitForProgress drains then completes", func(t *testing.T) {
		progress := make(chan tasks.ProgressUpdate, 1)
		done := make(chan runResult, 1)
		progress <- tasks.ProgressUpdate{Message: "one"}
		close(progress)
		done <- runResult{result: &tasks.BatchResult{}}

		msg := waitForProgress(progress, done)().(Msg)
		if msg.kind != MsgProgressUpdate {
			t.Fatalf("expected progress update first, got %v", msg.kind)
		}

		msg = waitForProgress(progress, done)().(Msg)
		if msg.kind != MsgRunComplete {
			t.Errorf("expected run complete, got %v", msg.kind)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("runs the selection to a result", func(t *testing.T) {
		m := newTestModel(t)
		m.selected = []string{tasks.ScenarioSearch}
		m.view = RunView
		m.startRun()

		for m.view == RunView {
			msg := waitForProgress(m.progressChan, m.doneChan)()
			m.Update(msg)
		}

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %v", m.view)
		}
		if m.result == nil || len(m.result.Outcomes) != 1 {
			t.Fatalf("expected one outcome, got %+v", m.result)
		}
		if m.result.Failed != 0 {
			t.Errorf("expected search to pass, got %v", m.result.Outcomes[0].Err())
		}
		if !strings.Contains(m.View(), "1 scenario(s) passed") {
			t.Errorf("expected passing verdict, got %q", m.View())
		}
	})

	t.Run("unbuildable scenarios are reported", func(t *testing.T) {
		m := newTestModel(t)
		m.view = RunView

		m.Update(runCompleteMsg(&tasks.BatchResult{}, []error{errors.New("upload-delete: missing scenarios.upload_file")}))
		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "1 of 1 scenario(s) failed") {
			t.Errorf("expected failing verdict, got %q", m.View())
		}
	})

	t.Run("r restarts from the list", func(t *testing.T) {
		m := newTestModel(t)
		m.view = RunView
		m.Update(runCompleteMsg(&tasks.BatchResult{}, nil))

		press(m, "r")
		if m.view != ScenarioListView {
			t.Errorf("expected ScenarioListView, got %v", m.view)
		}
		if m.result != nil {
			t.Error("expected result cleared")
		}
	})
}
