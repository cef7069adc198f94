// ABOUTME: Scrollable event log panel built on the bubbles viewport component.
// ABOUTME: Displays engine events with color-coded formatting based on event type.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/gauntlet/solver"
)

// LogPanelModel is a scrollable log of engine events.
type LogPanelModel struct {
	entries  []solver.Event
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates a log panel holding at most maxEntries events.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	vp := viewport.New(80, 10)
	return LogPanelModel{
		entries:  make([]solver.Event, 0, maxEntries),
		max:      maxEntries,
		viewport: vp,
	}
}

// Append adds an event to the log, evicting the oldest entry at capacity.
func (m *LogPanelModel) Append(ev solver.Event) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, ev)
	m.syncViewport()
}

// Len returns the number of entries in the log.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Border takes two lines and the title one more.
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// Update forwards scroll keys to the viewport.
func (m LogPanelModel) Update(msg tea.Msg) (LogPanelModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	var content string
	if len(m.entries) == 0 {
		content = "No events yet"
	} else {
		content = m.viewport.View()
	}

	rendered := TitleStyle.Render("EVENT LOG") + "\n" + content

	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

// syncViewport rebuilds the viewport content from entries and scrolls to the bottom.
func (m *LogPanelModel) syncViewport() {
	if len(m.entries) == 0 {
		m.viewport.SetContent("")
		return
	}
	var lines []string
	for _, ev := range m.entries {
		lines = append(lines, formatEntry(ev))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// formatEntry formats a single engine event as a log line.
func formatEntry(ev solver.Event) string {
	parts := []string{
		LogTimestampStyle.Render(ev.Time.Format("15:04:05")),
		eventStyle(ev.Type).Render(string(ev.Type)),
	}

	if ev.Step > 0 {
		parts = append(parts, fmt.Sprintf("[step %d]", ev.Step))
	}
	if ev.Token != "" {
		parts = append(parts, ev.Token)
	}
	if ev.Message != "" {
		parts = append(parts, ev.Message)
	}
	if ev.Err != "" {
		parts = append(parts, LogErrorStyle.Render("err="+ev.Err))
	}

	return strings.Join(parts, " ")
}

// eventStyle returns the appropriate lipgloss style for a given event type.
func eventStyle(t solver.EventType) lipgloss.Style {
	switch t {
	case solver.EventStepSolved, solver.EventTokenAccepted, solver.EventRunFinish:
		return LogSuccessStyle
	case solver.EventFault, solver.EventTokenRejected, solver.EventBudgetExpired:
		return LogErrorStyle
	case solver.EventStepSkipped, solver.EventStepAbandoned, solver.EventSkipAttempt:
		return LogRetryStyle
	default:
		return LogEventStyle
	}
}
