// ABOUTME: Bubble Tea sub-model rendering the step sequence as a grid of status markers.
// ABOUTME: Rows of ten steps with range labels; the active step carries its own marker.
package tui

import (
	"fmt"
	"strings"
)

// stepsPerRow is how many step cells render on one grid line.
const stepsPerRow = 10

// GridPanelModel displays every step of the sequence with a status marker.
type GridPanelModel struct {
	total    int
	statuses map[int]StepStatus
	current  int
	width    int
}

// NewGridPanelModel creates a grid for a sequence of total steps.
func NewGridPanelModel(total int) GridPanelModel {
	return GridPanelModel{
		total:    total,
		statuses: make(map[int]StepStatus),
	}
}

// SetStatus records a step's outcome.
func (m *GridPanelModel) SetStatus(step int, status StepStatus) {
	if step < 1 || step > m.total {
		return
	}
	m.statuses[step] = status
}

// Status returns the step's recorded outcome, the active marker when the step
// is the current one, and StepPending otherwise.
func (m GridPanelModel) Status(step int) StepStatus {
	if s, ok := m.statuses[step]; ok {
		return s
	}
	if step == m.current {
		return StepActive
	}
	return StepPending
}

// SetCurrent moves the active marker. Zero clears it.
func (m *GridPanelModel) SetCurrent(step int) {
	m.current = step
}

// Current returns the step carrying the active marker.
func (m GridPanelModel) Current() int {
	return m.current
}

// SetWidth sets the available width for rendering.
func (m *GridPanelModel) SetWidth(w int) {
	m.width = w
}

// View renders the grid panel as a bordered block.
func (m GridPanelModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("STEPS"))

	for start := 1; start <= m.total; start += stepsPerRow {
		end := start + stepsPerRow - 1
		if end > m.total {
			end = m.total
		}
		b.WriteString("\n")
		b.WriteString(PendingStyle.Render(fmt.Sprintf("%3d-%-3d", start, end)))
		for step := start; step <= end; step++ {
			status := m.Status(step)
			b.WriteString(" ")
			b.WriteString(StyleForStep(status).Render(status.Icon()))
		}
	}

	content := b.String()
	if m.width > 0 {
		return BorderStyle.Width(m.width - 2).Render(content)
	}
	return BorderStyle.Render(content)
}
