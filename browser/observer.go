// ABOUTME: PageObserver backed by browser_snapshot tool calls.
// ABOUTME: CurrentStep reads the step from the snapshot URL; Snapshot assembles the full PageState.
package browser

import (
	"context"

	"github.com/2389-research/gauntlet/solver"
)

// Observer implements solver.PageObserver over an MCP session.
type Observer struct {
	caller Caller
}

// NewObserver creates an observer on the given session.
func NewObserver(caller Caller) *Observer {
	return &Observer{caller: caller}
}

// Snapshot captures and parses the current page.
func (o *Observer) Snapshot(ctx context.Context) (solver.PageState, error) {
	payload, err := o.caller.Call(ctx, "browser_snapshot", nil)
	if err != nil {
		return solver.PageState{}, err
	}
	return parseSnapshot(payload)
}

// CurrentStep reports which step the surface shows, 0 when unknown.
func (o *Observer) CurrentStep(ctx context.Context) (int, error) {
	state, err := o.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return state.Step, nil
}
