// ABOUTME: Single-line status bar showing the target, elapsed time, solved count, and current position.
// ABOUTME: The spinner frame is injected by the app model while the run is live.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays run status in a single line.
type StatusBarModel struct {
	target     string
	startTime  time.Time
	totalSteps int
	solved     int
	step       int
	attempt    int
	tier       string
	frame      string
	width      int
}

// NewStatusBarModel creates a status bar for the given target and step count.
func NewStatusBarModel(target string, totalSteps int) StatusBarModel {
	return StatusBarModel{
		target:     target,
		totalSteps: totalSteps,
	}
}

// Start records the run start time.
func (m *StatusBarModel) Start() {
	m.startTime = time.Now()
}

// SetSolved updates the solved step count.
func (m *StatusBarModel) SetSolved(n int) {
	m.solved = n
}

// SetPosition updates the current step and attempt index.
func (m *StatusBarModel) SetPosition(step, attempt int) {
	m.step = step
	m.attempt = attempt
}

// SetTier sets the strategy tier label for the current attempt.
func (m *StatusBarModel) SetTier(tier string) {
	m.tier = tier
}

// SetFrame sets the spinner frame shown before the position. Empty hides it.
func (m *StatusBarModel) SetFrame(frame string) {
	m.frame = frame
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the time since Start() was called, or zero if not started.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	on := "idle"
	if m.step > 0 {
		on = fmt.Sprintf("step %d attempt %d", m.step, m.attempt+1)
		if m.tier != "" {
			on += fmt.Sprintf(" [%s]", m.tier)
		}
	}
	if m.frame != "" {
		on = m.frame + " " + on
	}

	content := fmt.Sprintf("Target: %s | Elapsed: %s | Solved: %d/%d | On: %s",
		m.target, formatElapsed(m.Elapsed()), m.solved, m.totalSteps, on)

	style := StatusBarStyle.Width(m.width)

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
