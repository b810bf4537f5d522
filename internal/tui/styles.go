// Package tui is a read-only bubbletea browser over the engine facade:
// a list of specs on the left, the selected spec's requirements, tasks,
// decisions, and history on the right. Mutations happen via the CLI or
// MCP server — the TUI never calls Engine.Put/WorkflowAdvance/etc.
//
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles the browser renders with, trimmed to
// what a read-only browser needs.
type Styles struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Body      lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Border    lipgloss.Style
	StageChip lipgloss.Style
}

// DefaultStyles returns the browser's default palette.
func DefaultStyles() Styles {
	primary := lipgloss.Color("#8BC34A")
	muted := lipgloss.Color("#6b7280")

	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Bold:     lipgloss.NewStyle().Bold(true),
		Body:     lipgloss.NewStyle(),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#101F38")).Background(primary),
		Border:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted),
		StageChip: lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Background(lipgloss.Color("#2a3850")).Foreground(lipgloss.Color("#f2f2f2")),
	}
}
