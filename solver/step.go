// ABOUTME: Single-attempt flow: snapshot, tier proposal, action batch, token scan, gated submit.
// ABOUTME: Every failure mode is absorbed into a history record; nothing escapes the attempt boundary.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
)

// runAttempt executes one attempt under its wall-clock deadline and books the
// outcome: history entry, collector record, store row, events. The deadline
// is the attempt budget capped by remaining run budget, so run-budget expiry
// cancels an in-flight attempt through its context.
func (e *Engine) runAttempt(parent context.Context, step, attempt int, hist *History) (bool, AttemptRecord) {
	ctx, cancel := context.WithTimeout(parent, e.budget.AttemptDeadline())
	defer cancel()

	e.emit(Event{Type: EventAttemptStart, Step: step, Attempt: attempt})
	start := e.now()
	solved, rec := e.safeAttempt(ctx, step, attempt, hist)
	rec.Elapsed = e.now().Sub(start)

	// A fault produced by the attempt deadline itself is a timed-out attempt,
	// not an environment problem. Cancellation from above stays a fault.
	if !solved && rec.Outcome == OutcomeFault &&
		errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		rec.Outcome = OutcomeTimeout
		rec.Detail = "attempt deadline exceeded"
	}

	hist.Add(rec)
	sa := e.collector.AddAttempt(StepAttempt{
		Step:    step,
		Attempt: rec.Attempt,
		Tier:    rec.Tier,
		Actions: rec.Actions,
		Outcome: rec.Outcome,
		Detail:  rec.Detail,
		Wall:    rec.Elapsed,
	})
	if e.store != nil {
		if err := e.store.SaveAttempt(e.collector.RunID(), sa); err != nil {
			log.Printf("component=solver action=save_attempt step=%d err=%v", step, err)
		}
	}
	e.emit(Event{Type: EventAttemptFinish, Step: step, Attempt: attempt, Tier: rec.Tier, Message: string(rec.Outcome)})
	return solved, rec
}

// safeAttempt guards the attempt against collaborator panics: a panicking
// collaborator becomes a failed attempt, never a crashed run.
func (e *Engine) safeAttempt(ctx context.Context, step, attempt int, hist *History) (solved bool, rec AttemptRecord) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Printf("component=solver action=attempt_panic step=%d attempt=%d err=%v\n%s", step, attempt, r, stack)
			solved = false
			rec = AttemptRecord{
				Attempt: attempt,
				Tier:    TierForAttempt(attempt, e.cfg.EscalationThreshold),
				Outcome: OutcomeFault,
				Detail:  fmt.Sprintf("panic: %v", r),
			}
			e.emit(Event{Type: EventFault, Step: step, Attempt: attempt, Err: rec.Detail})
		}
	}()
	return e.attemptOnce(ctx, step, attempt, hist)
}

// attemptOnce is the attempt flow proper: observe, short-circuit on a visible
// token, propose, act, scan, submit.
func (e *Engine) attemptOnce(ctx context.Context, step, attempt int, hist *History) (bool, AttemptRecord) {
	rec := AttemptRecord{Attempt: attempt, Tier: TierForAttempt(attempt, e.cfg.EscalationThreshold)}

	page, err := e.observer.Snapshot(ctx)
	if err != nil {
		return false, e.faultRecord(rec, step, faultErr("snapshot", err))
	}

	// A token already on screen short-circuits the attempt. Only the first
	// unconsumed one is tried; it is consumed whether or not it works.
	for _, tok := range page.VisibleTokens {
		if e.ledger.Contains(tok) {
			continue
		}
		e.emit(Event{Type: EventTokenFound, Step: step, Token: tok, Message: "visible on page"})
		if accepted, _, _ := e.submitToken(ctx, step, tok); accepted {
			rec.Outcome = OutcomeSolved
			rec.Detail = "visible token " + tok
			return true, rec
		}
		break
	}

	actions, tier, err := e.proposalFor(ctx, attempt, page, hist)
	rec.Tier = tier
	if err != nil {
		return false, e.faultRecord(rec, step, faultErr("propose", err))
	}
	e.emit(Event{Type: EventTierSelected, Step: step, Attempt: attempt, Tier: tier})
	if len(actions) == 0 {
		rec.Outcome = OutcomeTierMiss
		rec.Detail = "no proposal"
		return false, rec
	}
	rec.Actions = SummarizeActions(actions)

	for _, a := range actions {
		ok, err := e.actuator.Execute(ctx, a, e.cfg.SettleDelay)
		if err != nil {
			return false, e.faultRecord(rec, step, faultErr("execute "+a.Kind, err))
		}
		if !ok {
			e.emit(Event{Type: EventActionExecuted, Step: step, Message: a.Summary(), Err: "not executed"})
			continue
		}
		e.emit(Event{Type: EventActionExecuted, Step: step, Message: a.Summary()})
	}

	token, found, err := e.scanner.Find(ctx, e.ledger)
	if err != nil {
		return false, e.faultRecord(rec, step, faultErr("scan", err))
	}
	if !found {
		rec.Outcome = OutcomeNoToken
		rec.Detail = "no token surfaced"
		return false, rec
	}
	e.emit(Event{Type: EventTokenFound, Step: step, Token: token})

	accepted, faulted, detail := e.submitToken(ctx, step, token)
	switch {
	case accepted:
		rec.Outcome = OutcomeSolved
		rec.Detail = "token " + token
		return true, rec
	case faulted:
		rec.Outcome = OutcomeFault
		rec.Detail = detail
		return false, rec
	default:
		rec.Outcome = OutcomeRejected
		rec.Detail = detail
		return false, rec
	}
}

// proposalFor selects the tier for this attempt and collects its proposal.
// Rules with nothing to offer hand the same attempt to the text model; an
// unregistered tier degrades to the nearest registered one below it.
func (e *Engine) proposalFor(ctx context.Context, attempt int, page PageState, hist *History) ([]Action, Tier, error) {
	tier := TierForAttempt(attempt, e.cfg.EscalationThreshold)
	for tier > TierRules {
		if _, ok := e.tiers[tier]; ok {
			break
		}
		tier--
	}
	for {
		if impl, ok := e.tiers[tier]; ok {
			actions, err := impl.Propose(ctx, page, hist)
			if err != nil {
				return nil, tier, err
			}
			if len(actions) > 0 {
				return actions, tier, nil
			}
		}
		if tier == TierRules {
			if _, ok := e.tiers[TierModel]; ok {
				tier = TierModel
				continue
			}
		}
		return nil, tier, nil
	}
}

// submitToken consumes the token, submits it, and polls for advancement.
// The ledger add happens before the submit call: once a token leaves for the
// gate it is burned, whatever comes back.
func (e *Engine) submitToken(ctx context.Context, step int, token string) (accepted, faulted bool, detail string) {
	e.ledger.Add(token)

	ok, err := e.submitter.Submit(ctx, token)
	if err != nil {
		e.emit(Event{Type: EventFault, Step: step, Token: token, Err: err.Error(), Message: "submit"})
		return false, true, fmt.Sprintf("submit fault: %v", err)
	}
	if !ok {
		e.emit(Event{Type: EventTokenRejected, Step: step, Token: token, Message: "could not submit"})
		return false, false, "token " + token + " could not be submitted"
	}

	for i := 0; i < e.cfg.AdvancePolls; i++ {
		adv, err := e.submitter.HasAdvanced(ctx, step)
		if err != nil {
			e.emit(Event{Type: EventFault, Step: step, Err: err.Error(), Message: "check advancement"})
		} else if adv {
			e.emit(Event{Type: EventTokenAccepted, Step: step, Token: token})
			return true, false, ""
		}
		if i < e.cfg.AdvancePolls-1 {
			e.sleep(ctx, e.cfg.AdvanceInterval)
			if ctx.Err() != nil {
				break
			}
		}
	}
	e.emit(Event{Type: EventTokenRejected, Step: step, Token: token, Message: "no advancement"})
	return false, false, "token " + token + " not accepted"
}

// faultRecord finalizes an attempt record for an environment fault.
func (e *Engine) faultRecord(rec AttemptRecord, step int, f *EnvironmentFault) AttemptRecord {
	e.emit(Event{Type: EventFault, Step: step, Attempt: rec.Attempt, Err: f.Error()})
	rec.Outcome = OutcomeFault
	rec.Detail = f.Error()
	return rec
}
