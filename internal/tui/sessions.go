// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"eeg/internal/analysis"
	"eeg/internal/artifact"
	"eeg/internal/band"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8A33D")).
			Bold(true)
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	SummaryScreen
)

var (
	keyQuit  = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp    = key.NewBinding(key.WithKeys("up", "k"))
	keyDown  = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter = key.NewBinding(key.WithKeys("enter"))
	keyBack  = key.NewBinding(key.WithKeys("esc"))
	keyLoad  = key.NewBinding(key.WithKeys("r"))
)

// SessionListModel browses the artifacts in one directory and shows the
// analysis of the selected one.
type SessionListModel struct {
	dir      string
	analyzer *analysis.Analyzer

	sessions      []artifact.Info
	selectedIndex int
	summary       *analysis.Summary
	summaryErr    error

	viewport     viewport.Model
	ready        bool
	err          error
	activeScreen ScreenType
}

type sessionsMsg struct {
	sessions []artifact.Info
}

type summaryMsg struct {
	summary *analysis.Summary
	err     error
}

type errMsg struct {
	err error
}

// NewSessionListModel creates a browser over dir.
func NewSessionListModel(dir string, a *analysis.Analyzer) SessionListModel {
	if a == nil {
		a = analysis.New()
	}
	return SessionListModel{
		dir:          dir,
		analyzer:     a,
		activeScreen: ListScreen,
	}
}

func (m SessionListModel) Init() tea.Cmd {
	return m.fetchSessions
}

func (m SessionListModel) fetchSessions() tea.Msg {
	sessions, err := artifact.List(m.dir)
	if err != nil {
		return errMsg{err}
	}
	return sessionsMsg{sessions}
}

func analyzeCmd(a *analysis.Analyzer, path string) tea.Cmd {
	return func() tea.Msg {
		s, err := a.AnalyzeFile(path)
		return summaryMsg{summary: s, err: err}
	}
}

func (m SessionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case sessionsMsg:
		m.sessions = msg.sessions
		if m.selectedIndex >= len(m.sessions) {
			m.selectedIndex = max(len(m.sessions)-1, 0)
		}
		m.refresh()

	case summaryMsg:
		m.summary, m.summaryErr = msg.summary, msg.err
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if m.err != nil || key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keyUp):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.refresh()
				}
			case key.Matches(msg, keyDown):
				if m.selectedIndex < len(m.sessions)-1 {
					m.selectedIndex++
					m.refresh()
				}
			case key.Matches(msg, keyLoad):
				cmds = append(cmds, m.fetchSessions)
			case key.Matches(msg, keyEnter):
				if len(m.sessions) > 0 {
					m.activeScreen = SummaryScreen
					m.summary, m.summaryErr = nil, nil
					m.refresh()
					cmds = append(cmds, analyzeCmd(m.analyzer, m.sessions[m.selectedIndex].Path))
				}
			}
		case SummaryScreen:
			if key.Matches(msg, keyBack) {
				m.activeScreen = ListScreen
				m.refresh()
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *SessionListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == SummaryScreen {
		m.viewport.SetContent(m.renderSummary())
	} else {
		m.viewport.SetContent(m.renderSessions())
	}
}

func (m SessionListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("EEG Sessions: " + m.dir)
		help = infoStyle.Render("↑/↓: Navigate • Enter: Analyze • r: Reload • q: Quit")
	} else {
		title = titleStyle.Render("Session Summary")
		help = infoStyle.Render("Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m SessionListModel) renderSessions() string {
	if len(m.sessions) == 0 {
		return fmt.Sprintf("No sessions matching %s found.", artifact.Pattern)
	}

	var sb strings.Builder
	for i, s := range m.sessions {
		line := fmt.Sprintf("%s\n    %s, %s\n",
			s.Name, s.ModTime.Format("2006-01-02 15:04:05"), formatSize(s.Size))
		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m SessionListModel) renderSummary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n\n", m.sessions[m.selectedIndex].Name)

	switch {
	case m.summaryErr != nil:
		fmt.Fprintf(&sb, "Analysis failed: %v\n", m.summaryErr)
		return sb.String()
	case m.summary == nil:
		sb.WriteString("Analyzing...\n")
		return sb.String()
	}

	s := m.summary
	fmt.Fprintf(&sb, "Rows: %d\n\n", s.Rows)
	sb.WriteString("Average band power:\n")
	for _, p := range s.Powers {
		marker := " "
		if p.Band == s.DominantBand {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %-6s %s\n", marker, p.Band, formatPower(p))
		if p.Band == s.DominantBand {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	state := fmt.Sprintf("\nDominant band: %s\nInferred state: %s\n", s.DominantBand, s.State)
	if band.Alert(s.DominantBand) {
		state = alertStyle.Render(state)
	}
	sb.WriteString(state)
	return sb.String()
}

func formatPower(p analysis.BandPower) string {
	if p.Missing {
		return "n/a"
	}
	return fmt.Sprintf("%.4f (%d channels)", p.Mean, p.Columns)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// StartSessionBrowser launches the Bubble Tea TUI over dir.
func StartSessionBrowser(dir string, a *analysis.Analyzer) error {
	p := tea.NewProgram(
		NewSessionListModel(dir, a),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
