// ABOUTME: Three-layer wall-clock budget: whole run, current step, single attempt.
// ABOUTME: All reads go through one injectable clock so tests control time exactly.
package solver

import "time"

// Budget tracks the run ceiling, the per-step ceiling, and the per-attempt
// ceiling against a single clock. Elapsed values are monotonic
// non-decreasing; expiry checks never reset on their own.
type Budget struct {
	now func() time.Time

	runLimit     time.Duration
	stepLimit    time.Duration
	attemptLimit time.Duration

	runStart  time.Time
	stepStart time.Time
}

// NewBudget builds a budget over the given limits. now may be nil, in which
// case time.Now is used. The run clock starts immediately.
func NewBudget(run, step, attempt time.Duration, now func() time.Time) *Budget {
	if now == nil {
		now = time.Now
	}
	b := &Budget{
		now:          now,
		runLimit:     run,
		stepLimit:    step,
		attemptLimit: attempt,
	}
	t := b.now()
	b.runStart = t
	b.stepStart = t
	return b
}

// StartStep restamps the step clock. Called on observed-step change.
func (b *Budget) StartStep() {
	b.stepStart = b.now()
}

// Elapsed returns wall time since the run started.
func (b *Budget) Elapsed() time.Duration {
	return b.now().Sub(b.runStart)
}

// StepElapsed returns wall time since the current step was first observed.
func (b *Budget) StepElapsed() time.Duration {
	return b.now().Sub(b.stepStart)
}

// Remaining returns run budget left, floored at zero.
func (b *Budget) Remaining() time.Duration {
	r := b.runLimit - b.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// RunExpired reports whether the run ceiling has passed.
func (b *Budget) RunExpired() bool {
	return b.Elapsed() >= b.runLimit
}

// StepExpired reports whether the current step has used its ceiling.
func (b *Budget) StepExpired() bool {
	return b.StepElapsed() >= b.stepLimit
}

// AttemptDeadline returns the wall-time bound for the next attempt: the
// attempt limit, capped by whatever run budget remains. A run near its
// ceiling therefore cancels an in-flight attempt at the ceiling, not after.
func (b *Budget) AttemptDeadline() time.Duration {
	d := b.attemptLimit
	if r := b.Remaining(); r < d {
		d = r
	}
	return d
}
