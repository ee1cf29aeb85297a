package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmx/internal/formatter"
	"github.com/desertthunder/gmx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ScenarioListView ViewState = iota
	ConfirmView
	RunView
	ResultView
)

// lines of step progress kept on screen during a run
const logLines = 12

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	env          *tasks.Env
	sequencer    *tasks.Sequencer
	opts         tasks.BatchOpts
	width        int
	height       int
	scenarioList list.Model
	selected     []string // nil runs every scenario
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan runResult
	current      tasks.ProgressUpdate
	log          []string
	result       *tasks.BatchResult
	buildErrs    []error
	viewport     viewport.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, env *tasks.Env, sequencer *tasks.Sequencer, opts tasks.BatchOpts) *Model {
	scenarioList := list.New(scenarioItems(), list.NewDefaultDelegate(), 0, 0)
	scenarioList.Title = "Scenarios"

	return &Model{
		ctx:          ctx,
		view:         ScenarioListView,
		env:          env,
		sequencer:    sequencer,
		opts:         opts,
		scenarioList: scenarioList,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport:     viewport.New(0, 0),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init has nothing to load: the scenario list is static.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scenarioList.SetSize(msg.Width-4, msg.Height-8)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ScenarioListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != RunView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.applyProgress(msg.data.(tasks.ProgressUpdate))
			return m, waitForProgress(m.progressChan, m.doneChan)
		case MsgRunComplete:
			done := msg.data.(runResult)
			m.result = done.result
			m.buildErrs = done.errs
			m.progressChan, m.doneChan = nil, nil
			m.viewport.SetContent(resultContent(done.result, done.errs))
			m.viewport.GotoTop()
			m.view = ResultView
			return m, nil
		}
	}

	return m.updateViews(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ScenarioListView:
		return m.renderList()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.scenarioList.FilterState() == list.Filtering {
		return m.updateViews(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.scenarioList.SelectedItem().(scenarioItem); ok {
			m.selected = []string{item.scenario.Name}
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.all):
		m.selected = nil
		m.view = ConfirmView
		return m, nil
	}

	return m.updateViews(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = ScenarioListView
		return m, nil
	case "y":
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ScenarioListView
		m.selected = nil
		m.result = nil
		m.buildErrs = nil
		m.log = nil
		return m, nil
	}
	return m.updateViews(msg)
}

func (m *Model) updateViews(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ScenarioListView:
		m.scenarioList, cmd = m.scenarioList.Update(msg)
	case ResultView:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *Model) applyProgress(u tasks.ProgressUpdate) {
	m.current = u
	switch u.Phase {
	case tasks.StepStarted:
		return
	case tasks.StepPassed, tasks.StepFailed, tasks.StepsSkipped:
		m.log = append(m.log, fmt.Sprintf("  %s: %s", u.Sequence, u.Message))
	default:
		m.log = append(m.log, u.Message)
	}
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

// startRun builds the selected scenarios and runs them in the background. Updates arrive through
// [waitForProgress] until the progress channel closes, then the result follows.
func (m *Model) startRun() tea.Cmd {
	seqs, errs := tasks.BuildAll(m.env, m.selected...)

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan runResult, 1)
	m.progressChan, m.doneChan = progress, done
	m.log = nil

	ctx, sequencer, opts := m.ctx, m.sequencer, m.opts
	go func() {
		res := &tasks.BatchResult{}
		if len(seqs) > 0 {
			res = sequencer.RunAll(ctx, progress, seqs, opts)
		}
		close(progress)
		done <- runResult{result: res, errs: errs}
	}()

	return tea.Batch(m.spinner.Tick, waitForProgress(progress, done))
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan runResult) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		r := <-done
		return runCompleteMsg(r.result, r.errs)
	}
}

func resultContent(res *tasks.BatchResult, errs []error) string {
	var b strings.Builder
	for _, err := range errs {
		b.WriteString(styles.warn.Render("not run: "+err.Error()) + "\n")
	}
	if len(errs) > 0 {
		b.WriteString("\n")
	}

	switch len(res.Outcomes) {
	case 0:
	case 1:
		b.Write(formatter.OutcomeToText(res.Outcomes[0]))
	default:
		b.Write(formatter.BatchToText(res))
	}
	return b.String()
}

func (m *Model) selectionLabel() string {
	if len(m.selected) == 0 {
		return "all scenarios"
	}
	return strings.Join(m.selected, ", ")
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.all, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.scenarioList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Run %s?", m.selectionLabel()))
	info := styles.warn.Render("Scenarios create, change and delete playlists and tracks on the service.")
	if m.env != nil && m.env.SongID != "" {
		info += fmt.Sprintf("\nSong: %s", m.env.SongID)
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render(fmt.Sprintf("Running %s", m.selectionLabel()))

	status := "Starting..."
	if m.current.Message != "" {
		status = m.current.Message
	}

	return fmt.Sprintf("%s\n\n%s %s\n\n%s", title, m.spinner.View(), status, strings.Join(m.log, "\n"))
}

func (m *Model) renderResult() string {
	var title string
	switch {
	case m.result == nil:
		title = styles.err.Render("No result available")
	case m.result.Failed == 0 && len(m.buildErrs) == 0:
		title = styles.Verdict(fmt.Sprintf("✓ %d scenario(s) passed", m.result.Succeeded), true)
	default:
		title = styles.Verdict(fmt.Sprintf("✗ %d of %d scenario(s) failed", m.result.Failed+len(m.buildErrs), len(m.result.Outcomes)+len(m.buildErrs)), false)
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), helpView)
}
