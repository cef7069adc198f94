// ABOUTME: Typed lifecycle events emitted by the engine during a run.
// ABOUTME: Consumed by the console printer, the store, the web fan-out, and the TUI bridge.
package solver

import "time"

// EventType identifies the kind of engine lifecycle event.
type EventType string

const (
	EventRunStart       EventType = "run.start"
	EventRunFinish      EventType = "run.finish"
	EventStepObserved   EventType = "step.observed"
	EventStepStart      EventType = "step.start"
	EventStepSolved     EventType = "step.solved"
	EventStepSkipped    EventType = "step.skipped"
	EventStepAbandoned  EventType = "step.abandoned"
	EventAttemptStart   EventType = "attempt.start"
	EventAttemptFinish  EventType = "attempt.finish"
	EventTierSelected   EventType = "tier.selected"
	EventActionExecuted EventType = "action.executed"
	EventTokenFound     EventType = "token.found"
	EventTokenAccepted  EventType = "token.accepted"
	EventTokenRejected  EventType = "token.rejected"
	EventSkipAttempt    EventType = "skip.attempt"
	EventBudgetExpired  EventType = "budget.expired"
	EventFault          EventType = "fault"
)

// Event is one engine lifecycle notification. Fields beyond Type and Time
// are populated when meaningful for the event kind.
type Event struct {
	Type    EventType `json:"type"`
	Step    int       `json:"step,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Tier    Tier      `json:"tier,omitempty"`
	Token   string    `json:"token,omitempty"`
	Message string    `json:"message,omitempty"`
	Err     string    `json:"err,omitempty"`
	Time    time.Time `json:"time"`
}

// EventHandler receives engine events. Handlers run synchronously on the
// engine goroutine and must not block.
type EventHandler func(Event)
