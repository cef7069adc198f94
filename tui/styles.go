// ABOUTME: Defines lipgloss style constants for the dashboard panels, step states, and log lines.
// ABOUTME: Provides StyleForStep to map StepStatus values to their display styles.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Step states
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	SolvedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	SkippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	AbandonedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogRetryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Budget gauge
	GaugeFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	GaugeWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	GaugeEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// StyleForStep returns the appropriate lipgloss style for a StepStatus.
func StyleForStep(status StepStatus) lipgloss.Style {
	switch status {
	case StepPending:
		return PendingStyle
	case StepActive:
		return ActiveStyle
	case StepSolved:
		return SolvedStyle
	case StepSkipped:
		return SkippedStyle
	case StepAbandoned:
		return AbandonedStyle
	default:
		return PendingStyle
	}
}
