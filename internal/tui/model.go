package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"manifold/internal/engine"
	"manifold/internal/manifold"
)

// Model is the bubbletea root model for the spec browser.
type Model struct {
	engine *engine.Engine
	filter manifold.Filter

	specs  []manifold.Summary
	cursor int

	selected *manifold.Spec
	detail   viewport.Model

	width, height int
	styles        Styles
	err           error
}

// New builds a Model around an already-wired Engine. filter narrows the
// spec list the same way `manifold spec list` does.
func New(eng *engine.Engine, filter manifold.Filter) Model {
	vp := viewport.New(80, 20)
	return Model{
		engine: eng,
		filter: filter,
		detail: vp,
		styles: DefaultStyles(),
		width:  80,
		height: 20,
	}
}

type specsLoadedMsg struct {
	specs []manifold.Summary
	err   error
}

type specLoadedMsg struct {
	spec *manifold.Spec
	err  error
}

func (m Model) loadSpecs() tea.Cmd {
	return func() tea.Msg {
		specs, err := m.engine.List(m.filter)
		return specsLoadedMsg{specs: specs, err: err}
	}
}

func (m Model) loadSpec(specID string) tea.Cmd {
	return func() tea.Msg {
		spec, err := m.engine.Get(specID)
		return specLoadedMsg{spec: spec, err: err}
	}
}

// Init kicks off the initial spec list load.
func (m Model) Init() tea.Cmd {
	return m.loadSpecs()
}

// Update handles bubbletea messages: window resize, navigation keys, and
// the async list/get results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = m.width / 2
		m.detail.Height = m.height - 2
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, m.selectCmd()
		case "down", "j":
			if m.cursor < len(m.specs)-1 {
				m.cursor++
			}
			return m, m.selectCmd()
		case "pgup":
			m.detail.HalfViewUp()
		case "pgdown":
			m.detail.HalfViewDown()
		}

	case specsLoadedMsg:
		m.err = msg.err
		m.specs = msg.specs
		if m.err == nil && len(m.specs) > 0 {
			return m, m.selectCmd()
		}
		return m, nil

	case specLoadedMsg:
		m.err = msg.err
		m.selected = msg.spec
		m.detail.SetContent(renderSpecDetail(m.styles, m.selected))
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m Model) selectCmd() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.specs) {
		return nil
	}
	return m.loadSpec(m.specs[m.cursor].SpecID)
}

// View renders the two-pane browser: spec list on the left, the
// selected spec's detail on the right.
func (m Model) View() string {
	if m.err != nil {
		return m.styles.Body.Render(fmt.Sprintf("error: %v\n", m.err))
	}

	left := m.renderList()
	right := m.detail.View()

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Border.Width(m.width/2-2).Render(left),
		m.styles.Border.Width(m.width/2-2).Render(right),
	)
}

func (m Model) renderList() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("specs"))
	sb.WriteString("\n\n")

	if len(m.specs) == 0 {
		sb.WriteString(m.styles.Muted.Render("no specs"))
		return sb.String()
	}

	for i, s := range m.specs {
		line := fmt.Sprintf("%-24s %s", truncate(s.Name, 24), s.Stage)
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render(line))
		} else {
			sb.WriteString(m.styles.Body.Render(line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderSpecDetail(styles Styles, spec *manifold.Spec) string {
	if spec == nil {
		return styles.Muted.Render("select a spec")
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(spec.Name))
	sb.WriteString("  ")
	sb.WriteString(styles.StageChip.Render(string(spec.Stage)))
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(spec.Project + " / " + string(spec.Boundary)))
	sb.WriteString("\n\n")

	if spec.Description != "" {
		sb.WriteString(styles.Body.Render(spec.Description))
		sb.WriteString("\n\n")
	}

	sb.WriteString(styles.Bold.Render(fmt.Sprintf("requirements (%d)", len(spec.Requirements))))
	sb.WriteString("\n")
	for _, r := range spec.Requirements {
		sb.WriteString(fmt.Sprintf("  [%s] %s — %s\n", r.Priority, r.ID, r.Title))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Bold.Render(fmt.Sprintf("tasks (%d)", len(spec.Tasks))))
	sb.WriteString("\n")
	for _, t := range spec.Tasks {
		sb.WriteString(fmt.Sprintf("  [%s] %s — %s\n", t.Status, t.ID, t.Title))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Bold.Render(fmt.Sprintf("decisions (%d)", len(spec.Decisions))))
	sb.WriteString("\n")
	for _, d := range spec.Decisions {
		sb.WriteString(fmt.Sprintf("  %s — %s\n", d.ID, d.Title))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Bold.Render(fmt.Sprintf("history (%d patches)", len(spec.History.Patches))))
	sb.WriteString("\n")
	for _, p := range spec.History.Patches {
		sb.WriteString(fmt.Sprintf("  %s by %s (%d ops)\n", p.Timestamp.Format("2006-01-02 15:04"), p.Actor, len(p.Operations)))
	}

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
