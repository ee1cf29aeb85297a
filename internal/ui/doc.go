// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for running verification scenarios:
//  1. [ScenarioListView] : Browse and select a scenario, or all of them
//  2. [ConfirmView] : Confirm the run, since scenarios create and delete entities on the service
//  3. [RunView] : Monitor step progress with a spinner
//  4. [ResultView] : Scroll through outcomes, leftovers and comparison reports
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the Sequencer, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
