package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgRunComplete
)

// runResult is the payload of [MsgRunComplete].
type runResult struct {
	result *tasks.BatchResult
	errs   []error // scenarios that could not be built
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.BatchResult, errs []error) Msg {
	return Msg{kind: MsgRunComplete, data: runResult{result: result, errs: errs}}
}
