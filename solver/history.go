// ABOUTME: Per-step attempt history: what each attempt tried, which tier, and how it ended.
// ABOUTME: Reset exactly when the observed step changes; rendered as lines for vision-tier prompts.
package solver

import (
	"fmt"
	"time"
)

// Outcome classifies how an attempt or step ended.
type Outcome string

const (
	OutcomeSolved    Outcome = "solved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeNoToken   Outcome = "no-token"
	OutcomeTierMiss  Outcome = "tier-miss"
	OutcomeFault     Outcome = "fault"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAbandoned Outcome = "abandoned"
)

// AttemptRecord captures one finished attempt on the current step.
type AttemptRecord struct {
	Attempt int // zero-based attempt index
	Tier    Tier
	Actions string // summarized action batch, empty when none executed
	Outcome Outcome
	Detail  string // outcome qualifier: rejected token, fault message, ...
	Elapsed time.Duration
}

// Line renders the record as one prompt/log line.
func (r AttemptRecord) Line() string {
	s := fmt.Sprintf("attempt %d [%s]", r.Attempt+1, r.Tier)
	if r.Actions != "" {
		s += ": " + r.Actions
	}
	s += " => " + string(r.Outcome)
	if r.Detail != "" {
		s += " (" + r.Detail + ")"
	}
	return s
}

// History holds the ordered attempt records for the step currently being
// worked. The engine resets it whenever the observed step changes, so records
// never leak across steps.
type History struct {
	records []AttemptRecord
}

// Add appends a finished attempt record.
func (h *History) Add(rec AttemptRecord) {
	h.records = append(h.records, rec)
}

// Len returns the number of recorded attempts.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of the attempt records in order.
func (h *History) Records() []AttemptRecord {
	out := make([]AttemptRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Lines renders every record for inclusion in an escalated prompt.
func (h *History) Lines() []string {
	lines := make([]string, len(h.records))
	for i, r := range h.records {
		lines[i] = r.Line()
	}
	return lines
}

// Reset drops all records. Called on observed-step change.
func (h *History) Reset() {
	h.records = nil
}
