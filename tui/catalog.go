// ABOUTME: Renders the step catalog as a lipgloss table, marking steps in the configured pipeline.
// ABOUTME: Used by `sigmachain steps`.
package tui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/saicharanallam/sigmachain/steps"
)

// RenderStepCatalog lists every catalog entry with its position in the
// configured pipeline, or "-" when it is not configured.
func RenderStepCatalog(entries []steps.CatalogEntry, configured []string) string {
	position := make(map[string]int, len(configured))
	for i, name := range configured {
		position[name] = i + 1
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("POSITION", "STEP", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})

	for _, name := range configured {
		desc := "not in catalog"
		for _, e := range entries {
			if e.Name == name {
				desc = e.Description
				break
			}
		}
		t.Row(strconv.Itoa(position[name]), name, desc)
	}
	for _, e := range entries {
		if _, ok := position[e.Name]; ok {
			continue
		}
		t.Row("-", e.Name, e.Description)
	}
	return t.Render()
}
