package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/gmx/internal/tasks"
)

var (
	_ list.Item = scenarioItem{}
)

// scenarioItem wraps [tasks.Scenario] to implement [list.Item].
type scenarioItem struct {
	scenario tasks.Scenario
}

func (i scenarioItem) FilterValue() string { return i.scenario.Name }
func (i scenarioItem) Title() string       { return i.scenario.Name }
func (i scenarioItem) Description() string { return i.scenario.Description }

func scenarioItems() []list.Item {
	scenarios := tasks.Scenarios()
	items := make([]list.Item, len(scenarios))
	for i, s := range scenarios {
		items[i] = scenarioItem{scenario: s}
	}
	return items
}
