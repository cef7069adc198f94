// ABOUTME: Run metrics: per-step results, per-attempt records, and the final run report.
// ABOUTME: Records are append-only; the collector is written only by the engine goroutine.
package solver

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// StepResult is the final word on one step. Immutable once appended.
type StepResult struct {
	Step     int           `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Attempts int           `json:"attempts"`
	TierUsed Tier          `json:"tier_used"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// StepAttempt is one attempt's persistent record, keyed by a ULID so attempt
// rows sort chronologically within a run.
type StepAttempt struct {
	ID      string        `json:"id"`
	Step    int           `json:"step"`
	Attempt int           `json:"attempt"`
	Tier    Tier          `json:"tier"`
	Actions string        `json:"actions,omitempty"`
	Outcome Outcome       `json:"outcome"`
	Detail  string        `json:"detail,omitempty"`
	Wall    time.Duration `json:"wall"`
}

// RunReport aggregates everything a finished (or halted) run produced.
type RunReport struct {
	RunID          string        `json:"run_id"`
	TargetURL      string        `json:"target_url"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	TotalSteps     int           `json:"total_steps"`
	StepsSucceeded int           `json:"steps_succeeded"`
	Solved         []int         `json:"solved"`
	Skipped        []int         `json:"skipped"`
	Abandoned      []int         `json:"abandoned"`
	Results        []StepResult  `json:"results"`
	Attempts       []StepAttempt `json:"attempts"`
	Outcome        string        `json:"outcome"`
}

// Run outcome labels.
const (
	RunOutcomeSuccess    = "success"
	RunOutcomeIncomplete = "incomplete"
	RunOutcomeRunning    = "running"
)

// NewAttemptID generates a ULID using crypto/rand entropy.
func NewAttemptID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Collector accumulates step results and attempt records during a run and
// renders them into a RunReport. Single-writer: only the engine goroutine
// appends; readers consume report copies.
type Collector struct {
	runID      string
	targetURL  string
	startedAt  time.Time
	totalSteps int

	results  []StepResult
	attempts []StepAttempt
	solved   []int
	skipped  []int
	abandon  []int
}

// NewCollector starts an empty collector with a fresh run ID.
func NewCollector(targetURL string, totalSteps int, startedAt time.Time) *Collector {
	return &Collector{
		runID:      uuid.New().String(),
		targetURL:  targetURL,
		startedAt:  startedAt,
		totalSteps: totalSteps,
	}
}

// RunID returns the run's UUID.
func (c *Collector) RunID() string {
	return c.runID
}

// AddAttempt appends one attempt record, stamping an ID when absent.
func (c *Collector) AddAttempt(a StepAttempt) StepAttempt {
	if a.ID == "" {
		a.ID = NewAttemptID()
	}
	c.attempts = append(c.attempts, a)
	return a
}

// AddResult appends one step's final result and updates the outcome lists.
func (c *Collector) AddResult(r StepResult) {
	c.results = append(c.results, r)
	switch r.Outcome {
	case OutcomeSolved:
		c.solved = append(c.solved, r.Step)
	case OutcomeSkipped:
		c.skipped = append(c.skipped, r.Step)
	case OutcomeAbandoned:
		c.abandon = append(c.abandon, r.Step)
	}
}

// Solved returns how many steps have been solved so far.
func (c *Collector) Solved() int {
	return len(c.solved)
}

// Report renders the current state into a RunReport. threshold decides the
// success outcome; pass final=false while the run is still in flight.
func (c *Collector) Report(now time.Time, threshold int, final bool) *RunReport {
	rep := &RunReport{
		RunID:          c.runID,
		TargetURL:      c.targetURL,
		StartedAt:      c.startedAt,
		Duration:       now.Sub(c.startedAt),
		TotalSteps:     c.totalSteps,
		StepsSucceeded: len(c.solved),
		Solved:         append([]int(nil), c.solved...),
		Skipped:        append([]int(nil), c.skipped...),
		Abandoned:      append([]int(nil), c.abandon...),
		Results:        append([]StepResult(nil), c.results...),
		Attempts:       append([]StepAttempt(nil), c.attempts...),
	}
	switch {
	case !final:
		rep.Outcome = RunOutcomeRunning
	case rep.StepsSucceeded >= threshold:
		rep.Outcome = RunOutcomeSuccess
	default:
		rep.Outcome = RunOutcomeIncomplete
	}
	return rep
}
