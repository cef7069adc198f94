// ABOUTME: Bridge connecting the solver engine to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for event injection plus tea.Cmd factories for the run and the tick clock.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/gauntlet/solver"
)

// EventBridge wraps a tea.Program's Send method for injecting engine events
// into the Bubble Tea message loop.
type EventBridge struct {
	send func(msg tea.Msg)
}

// NewEventBridge creates an EventBridge that sends messages via the given
// function. Typically called with program.Send as the argument.
func NewEventBridge(send func(msg tea.Msg)) *EventBridge {
	return &EventBridge{send: send}
}

// HandleEvent satisfies the solver.EventHandler signature. It wraps the event
// in an EngineEventMsg and sends it to the dashboard.
func (b *EventBridge) HandleEvent(ev solver.Event) {
	b.send(EngineEventMsg{Event: ev})
}

// RunCmd returns a tea.Cmd that executes the engine's run. When the run
// completes (or fails), it sends a RunResultMsg. The context allows
// cancellation when the user quits the dashboard.
func RunCmd(ctx context.Context, engine *solver.Engine) tea.Cmd {
	return func() tea.Msg {
		rep, err := engine.Run(ctx)
		return RunResultMsg{Report: rep, Err: err}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for the elapsed clock and the budget gauge.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}
