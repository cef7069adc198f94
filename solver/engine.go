// ABOUTME: Run engine: observes the surface, dispatches attempts, and drives the retry/skip/abandon machine.
// ABOUTME: The current step is always observed from the surface, never assumed from bookkeeping.
package solver

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Engine orchestrates one run over its collaborators. Construct with New;
// a single Engine supports one Run at a time.
type Engine struct {
	cfg Config

	observer  PageObserver
	tiers     map[Tier]StrategyTier
	actuator  Actuator
	scanner   TokenScanner
	submitter Submitter
	navigator Navigator
	store     RunStore
	handler   EventHandler

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	// per-run state, initialized by Run
	ledger    *TokenLedger
	collector *Collector
	budget    *Budget
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the page observer.
func WithObserver(o PageObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithTiers registers strategy tiers, indexed by their Tier().
func WithTiers(tiers ...StrategyTier) Option {
	return func(e *Engine) {
		for _, t := range tiers {
			e.tiers[t.Tier()] = t
		}
	}
}

// WithActuator sets the action executor.
func WithActuator(a Actuator) Option {
	return func(e *Engine) { e.actuator = a }
}

// WithScanner sets the token scanner.
func WithScanner(s TokenScanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithSubmitter sets the token submitter.
func WithSubmitter(s Submitter) Option {
	return func(e *Engine) { e.submitter = s }
}

// WithNavigator sets the navigator.
func WithNavigator(n Navigator) Option {
	return func(e *Engine) { e.navigator = n }
}

// WithEventHandler sets the lifecycle event callback.
func WithEventHandler(h EventHandler) Option {
	return func(e *Engine) { e.handler = h }
}

// WithStore sets the optional run store.
func WithStore(s RunStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithClock replaces the wall clock and the context-aware sleep. Tests use
// this to drive time deterministically.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration)) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// New builds an engine for the given configuration. All collaborators except
// the store and the event handler are required.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:   cfg,
		tiers: make(map[Tier]StrategyTier),
		now:   time.Now,
		sleep: sleepWithContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	switch {
	case e.observer == nil:
		return nil, ErrNoObserver
	case len(e.tiers) == 0:
		return nil, ErrNoTiers
	case e.actuator == nil:
		return nil, ErrNoActuator
	case e.scanner == nil:
		return nil, ErrNoScanner
	case e.submitter == nil:
		return nil, ErrNoSubmitter
	case e.navigator == nil:
		return nil, ErrNoNavigator
	}
	return e, nil
}

// Run executes the step sequence until success, terminal blockage, budget
// exhaustion, or context cancellation. The returned report is always
// populated, including on error.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	start := e.now()
	e.budget = NewBudget(e.cfg.RunBudget, e.cfg.StepBudget, e.cfg.AttemptBudget, e.now)
	e.collector = NewCollector(e.cfg.TargetURL, e.cfg.TotalSteps, start)
	e.ledger = NewTokenLedger()

	e.emit(Event{Type: EventRunStart, Message: e.cfg.TargetURL})
	e.saveRun(false)

	if err := e.navigator.Open(ctx); err != nil {
		e.emit(Event{Type: EventFault, Err: err.Error(), Message: "open target"})
		rep := e.finishRun()
		return rep, fmt.Errorf("open target: %w", err)
	}

	var (
		lastObserved = 0 // 0 = none yet; first real observation always resets
		attempt      = 0 // completed attempts on the current step
		lastTier     = TierRules
		hist         = &History{}
		abandoned    = map[int]bool{}
	)
	reset := func(step int) {
		lastObserved = step
		attempt = 0
		lastTier = TierRules
		hist.Reset()
		e.budget.StartStep()
	}

	for {
		if ctx.Err() != nil {
			rep := e.finishRun()
			return rep, ctx.Err()
		}
		if e.budget.RunExpired() {
			e.emit(Event{Type: EventBudgetExpired, Message: fmt.Sprintf("run budget %s exhausted", e.cfg.RunBudget)})
			break
		}

		step, err := e.observer.CurrentStep(ctx)
		if err != nil {
			e.emit(Event{Type: EventFault, Err: err.Error(), Message: "observe step"})
			step = 0
		}

		if step > e.cfg.TotalSteps {
			e.finishSequence(ctx)
			break
		}
		if step == 0 {
			e.sleep(ctx, e.cfg.ObservePoll)
			continue
		}
		if abandoned[step] {
			// An abandoned step is showing again: the run cannot progress.
			e.emit(Event{Type: EventFault, Step: step, Message: "abandoned step blocks progress"})
			break
		}
		if step != lastObserved {
			e.emit(Event{Type: EventStepObserved, Step: step})
			reset(step)
			e.emit(Event{Type: EventStepStart, Step: step})
		}

		if e.budget.StepExpired() && attempt >= 1 {
			reset(e.handleStuck(ctx, step, attempt, lastTier, abandoned))
			continue
		}

		solved, rec := e.runAttempt(ctx, step, attempt, hist)
		lastTier = rec.Tier

		if solved {
			e.collector.AddResult(StepResult{
				Step:     step,
				Outcome:  OutcomeSolved,
				Attempts: attempt + 1,
				TierUsed: rec.Tier,
				Duration: e.budget.StepElapsed(),
			})
			e.emit(Event{Type: EventStepSolved, Step: step, Tier: rec.Tier, Attempt: attempt})
			e.saveRun(false)
			if step == e.cfg.TotalSteps {
				e.finishSequence(ctx)
				break
			}
			e.sleep(ctx, e.cfg.SettleDelay)
			continue
		}

		attempt++
		if attempt >= e.cfg.MaxRetries {
			reset(e.handleStuck(ctx, step, attempt, lastTier, abandoned))
		}
	}

	rep := e.finishRun()
	return rep, nil
}

// finishSequence navigates the endgame page after the final gate opens.
func (e *Engine) finishSequence(ctx context.Context) {
	if err := e.navigator.Finish(ctx); err != nil {
		e.emit(Event{Type: EventFault, Err: err.Error(), Message: "finish navigation"})
	}
}

// finishRun assembles the final report, persists it, and emits run.finish.
func (e *Engine) finishRun() *RunReport {
	rep := e.collector.Report(e.now(), e.cfg.SuccessThreshold, true)
	if e.store != nil {
		if err := e.store.SaveRun(rep); err != nil {
			log.Printf("component=solver action=save_run err=%v", err)
		}
	}
	e.emit(Event{Type: EventRunFinish, Message: fmt.Sprintf("%s: %d/%d solved", rep.Outcome, rep.StepsSucceeded, rep.TotalSteps)})
	return rep
}

// saveRun persists an in-progress run row. Store errors are logged, never fatal.
func (e *Engine) saveRun(final bool) {
	if e.store == nil {
		return
	}
	rep := e.collector.Report(e.now(), e.cfg.SuccessThreshold, final)
	if err := e.store.SaveRun(rep); err != nil {
		log.Printf("component=solver action=save_run err=%v", err)
	}
}

// handleStuck runs skip-forward for a stuck step and returns the step the
// loop should now assume: the landing step on success, the next step after
// abandonment. The stuck step's result is recorded either way.
func (e *Engine) handleStuck(ctx context.Context, stuck, attempts int, lastTier Tier, abandoned map[int]bool) int {
	if landed, ok := e.skipForward(ctx, stuck); ok {
		e.collector.AddResult(StepResult{
			Step:     stuck,
			Outcome:  OutcomeSkipped,
			Attempts: attempts,
			TierUsed: lastTier,
			Duration: e.budget.StepElapsed(),
			Error:    fmt.Sprintf("stuck after %d attempts, advanced to step %d", attempts, landed),
		})
		e.emit(Event{Type: EventStepSkipped, Step: stuck, Message: fmt.Sprintf("advanced to step %d", landed)})
		e.saveRun(false)
		return landed
	}

	abandoned[stuck] = true
	e.collector.AddResult(StepResult{
		Step:     stuck,
		Outcome:  OutcomeAbandoned,
		Attempts: attempts,
		TierUsed: lastTier,
		Duration: e.budget.StepElapsed(),
		Error:    fmt.Sprintf("skip-forward exhausted after %d offsets", e.cfg.SkipRange),
	})
	e.emit(Event{Type: EventStepAbandoned, Step: stuck})
	e.saveRun(false)
	return stuck + 1
}

// skipForward tries direct navigation past a stuck step, nearest offset
// first. A jump counts only when the observed step matches the target and
// the surface is not an error render; failed jumps revert before the next
// offset.
func (e *Engine) skipForward(ctx context.Context, stuck int) (int, bool) {
	for k := 1; k <= e.cfg.SkipRange; k++ {
		target := stuck + k
		e.emit(Event{Type: EventSkipAttempt, Step: stuck, Message: fmt.Sprintf("goto step %d", target)})
		if err := e.navigator.GotoStep(ctx, target); err != nil {
			e.emit(Event{Type: EventFault, Step: stuck, Err: err.Error(), Message: fmt.Sprintf("goto step %d", target)})
			e.revert(ctx, stuck)
			continue
		}
		snap, err := e.observer.Snapshot(ctx)
		if err != nil {
			e.emit(Event{Type: EventFault, Step: stuck, Err: err.Error(), Message: "verify skip"})
			e.revert(ctx, stuck)
			continue
		}
		if snap.Step != target || snap.ErrorPage {
			e.revert(ctx, stuck)
			continue
		}
		return target, true
	}
	return 0, false
}

// revert returns to the stuck step after a failed jump, best effort.
func (e *Engine) revert(ctx context.Context, stuck int) {
	if err := e.navigator.GotoStep(ctx, stuck); err != nil {
		e.emit(Event{Type: EventFault, Step: stuck, Err: err.Error(), Message: "revert after failed skip"})
	}
}

// emit delivers an event to the handler, stamping the time when unset.
func (e *Engine) emit(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = e.now()
	}
	if e.handler != nil {
		e.handler(evt)
	}
}

// sleepWithContext sleeps for d or until the context is done.
func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
