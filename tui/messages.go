// ABOUTME: Bubble Tea message types used in the dashboard message loop.
// ABOUTME: Each type wraps a domain event or result for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/2389-research/gauntlet/solver"
)

// EngineEventMsg wraps a solver.Event for the Bubble Tea message loop.
type EngineEventMsg struct {
	Event solver.Event
}

// RunResultMsg signals that the run has finished.
type RunResultMsg struct {
	Report *solver.RunReport
	Err    error
}

// TickMsg is sent periodically to update the elapsed clock and budget gauge.
type TickMsg struct {
	Time time.Time
}
