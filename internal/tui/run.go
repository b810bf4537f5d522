package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"manifold/internal/engine"
	"manifold/internal/manifold"
)

// Run launches the spec browser as a full-screen bubbletea program and
// blocks until the user quits.
func Run(eng *engine.Engine, filter manifold.Filter) error {
	p := tea.NewProgram(New(eng, filter), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
