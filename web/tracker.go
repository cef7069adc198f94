// ABOUTME: Mutex-guarded live run view assembled from engine events.
// ABOUTME: The engine goroutine writes through Observe; HTTP handlers read copies.
package web

import (
	"sync"
	"time"

	"github.com/2389-research/gauntlet/solver"
)

// RunView is the live state served at /state.
type RunView struct {
	TargetURL   string    `json:"target_url,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CurrentStep int       `json:"current_step"`
	Attempt     int       `json:"attempt"`
	Tier        string    `json:"tier,omitempty"`
	TotalSteps  int       `json:"total_steps"`
	Solved      []int     `json:"solved,omitempty"`
	Skipped     []int     `json:"skipped,omitempty"`
	Abandoned   []int     `json:"abandoned,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Done        bool      `json:"done"`
	Outcome     string    `json:"outcome,omitempty"`
	EventCount  int       `json:"event_count"`
}

// Tracker accumulates engine events into a readable run view and keeps the
// full event history for SSE replay. Observe runs synchronously on the engine
// goroutine; every other method is safe for concurrent readers.
type Tracker struct {
	mu     sync.RWMutex
	view   RunView
	events []solver.Event
	report *solver.RunReport
}

// NewTracker creates a tracker expecting totalSteps steps.
func NewTracker(totalSteps int) *Tracker {
	return &Tracker{view: RunView{TotalSteps: totalSteps}}
}

// Observe ingests one engine event. Satisfies solver.EventHandler.
func (t *Tracker) Observe(ev solver.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, ev)
	t.view.EventCount = len(t.events)
	if ev.Message != "" {
		t.view.LastMessage = string(ev.Type) + ": " + ev.Message
	}
	if ev.Err != "" {
		t.view.LastError = ev.Err
	}

	switch ev.Type {
	case solver.EventRunStart:
		t.view.TargetURL = ev.Message
		t.view.StartedAt = ev.Time
	case solver.EventStepObserved:
		t.view.CurrentStep = ev.Step
		t.view.Attempt = 0
		t.view.Tier = ""
	case solver.EventAttemptStart:
		t.view.CurrentStep = ev.Step
		t.view.Attempt = ev.Attempt
	case solver.EventTierSelected:
		t.view.Tier = ev.Tier.String()
	case solver.EventStepSolved:
		t.view.Solved = append(t.view.Solved, ev.Step)
	case solver.EventStepSkipped:
		t.view.Skipped = append(t.view.Skipped, ev.Step)
	case solver.EventStepAbandoned:
		t.view.Abandoned = append(t.view.Abandoned, ev.Step)
	case solver.EventRunFinish:
		t.view.Done = true
		t.view.Outcome = ev.Message
	}
}

// View returns a copy of the current run view.
func (t *Tracker) View() RunView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v := t.view
	v.Solved = append([]int(nil), t.view.Solved...)
	v.Skipped = append([]int(nil), t.view.Skipped...)
	v.Abandoned = append([]int(nil), t.view.Abandoned...)
	return v
}

// EventsSince returns events with index >= from, plus whether the run is done.
// SSE handlers poll this to replay history and pick up new events.
func (t *Tracker) EventsSince(from int) ([]solver.Event, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if from >= len(t.events) {
		return nil, t.view.Done
	}
	return append([]solver.Event(nil), t.events[from:]...), t.view.Done
}

// SetReport attaches the final run report once the engine returns.
func (t *Tracker) SetReport(rep *solver.RunReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report = rep
}

// Report returns the final report, or nil while the run is in flight.
func (t *Tracker) Report() *solver.RunReport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.report
}
