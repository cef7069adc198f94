// ABOUTME: Single-line budget gauge showing run wall-clock consumption against the run budget.
// ABOUTME: The fill switches to the warn style once ninety percent of the budget is gone.
package tui

import (
	"fmt"
	"strings"
	"time"
)

// warnFraction is the consumed fraction at which the gauge fill turns red.
const warnFraction = 0.9

// BudgetGaugeModel renders run budget consumption as a horizontal bar.
type BudgetGaugeModel struct {
	total   time.Duration
	elapsed time.Duration
	width   int
}

// NewBudgetGaugeModel creates a gauge for the given run budget.
func NewBudgetGaugeModel(total time.Duration) BudgetGaugeModel {
	return BudgetGaugeModel{total: total}
}

// SetElapsed updates the consumed wall-clock time.
func (m *BudgetGaugeModel) SetElapsed(d time.Duration) {
	m.elapsed = d
}

// SetWidth sets the line width for rendering.
func (m *BudgetGaugeModel) SetWidth(w int) {
	m.width = w
}

// Fraction returns the consumed share of the budget, clamped to [0, 1].
func (m BudgetGaugeModel) Fraction() float64 {
	if m.total <= 0 {
		return 0
	}
	frac := float64(m.elapsed) / float64(m.total)
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

// View renders the gauge as one line: label, bar, elapsed/total.
func (m BudgetGaugeModel) View() string {
	label := fmt.Sprintf(" BUDGET %s/%s ", formatElapsed(m.elapsed), formatElapsed(m.total))

	barWidth := m.width - len(label)
	if barWidth < 10 {
		barWidth = 10
	}

	frac := m.Fraction()
	filled := int(frac * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	fillStyle := GaugeFillStyle
	if frac >= warnFraction {
		fillStyle = GaugeWarnStyle
	}

	bar := fillStyle.Render(strings.Repeat("█", filled)) +
		GaugeEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	return label + bar
}
