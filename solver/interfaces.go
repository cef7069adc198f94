// ABOUTME: Collaborator interfaces the run engine orchestrates, plus the shared page/action value types.
// ABOUTME: Implementations live in browser/ and strategy/; the engine only sees these contracts.
package solver

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Element is one interactive node from a page snapshot.
type Element struct {
	Role string // accessibility role: button, textbox, link, ...
	Name string // accessible name, may be empty
	Ref  string // opaque handle actions target
}

// PageState is a point-in-time observation of the surface. It may be stale
// immediately after any mutating action; callers re-snapshot before reading.
type PageState struct {
	Step          int
	URL           string
	Title         string
	Instruction   string
	Elements      []Element
	ElementCount  int
	VisibleTokens []string
	ErrorPage     bool // the surface rendered an error / not-found page
}

// Action kinds understood by actuators. The engine itself never branches on
// these; they are the shared vocabulary between tiers and actuators.
const (
	ActionClick    = "click"
	ActionType     = "type"
	ActionPress    = "press"
	ActionScroll   = "scroll"
	ActionWait     = "wait"
	ActionHover    = "hover"
	ActionDrag     = "drag"
	ActionEval     = "eval"
	ActionNavigate = "navigate"
)

// Action is a single proposed interface interaction. It is an inert value:
// tiers produce it, actuators interpret it, the engine only logs Summary().
type Action struct {
	Kind    string
	Ref     string
	Text    string
	Count   int
	Pixels  int
	Seconds float64
	Key     string
	ToRef   string
	Script  string
}

// Summary renders a compact one-line description for history and logs.
func (a Action) Summary() string {
	parts := []string{a.Kind}
	if a.Ref != "" {
		parts = append(parts, "ref="+a.Ref)
	}
	if a.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", truncate(a.Text, 40)))
	}
	if a.Count > 1 {
		parts = append(parts, fmt.Sprintf("x%d", a.Count))
	}
	if a.Pixels != 0 {
		parts = append(parts, fmt.Sprintf("px=%d", a.Pixels))
	}
	if a.Seconds > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", a.Seconds))
	}
	if a.Key != "" {
		parts = append(parts, "key="+a.Key)
	}
	if a.ToRef != "" {
		parts = append(parts, "to="+a.ToRef)
	}
	if a.Script != "" {
		parts = append(parts, fmt.Sprintf("js=%q", truncate(a.Script, 30)))
	}
	return strings.Join(parts, " ")
}

// SummarizeActions joins action summaries for a single history line.
func SummarizeActions(actions []Action) string {
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Summary()
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// PageObserver reports what the surface currently shows. CurrentStep returns
// 0 when the step is unknown or not yet rendered; errors are reserved for
// transport faults.
type PageObserver interface {
	CurrentStep(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (PageState, error)
}

// StrategyTier proposes actions for one attempt. An empty proposal means
// "nothing to offer, escalate"; it is not an error. Errors are genuine faults
// (network, transport) and fail the attempt.
type StrategyTier interface {
	Tier() Tier
	Propose(ctx context.Context, page PageState, hist *History) ([]Action, error)
}

// Actuator performs one action against the surface. A false return is an
// expected failure (stale ref, not interactable) and the batch continues;
// errors are unexpected faults. settle is the pause applied after interactive
// kinds so the surface can react before the next action.
type Actuator interface {
	Execute(ctx context.Context, action Action, settle time.Duration) (bool, error)
}

// TokenScanner looks for an unconsumed unlock token on the current surface.
// Find is cheap and idempotent; tokens already in the ledger are excluded.
type TokenScanner interface {
	Find(ctx context.Context, ledger *TokenLedger) (string, bool, error)
}

// Submitter enters a token into the gate and reports acceptance. HasAdvanced
// checks whether the surface moved strictly past priorStep.
type Submitter interface {
	Submit(ctx context.Context, token string) (bool, error)
	HasAdvanced(ctx context.Context, priorStep int) (bool, error)
}

// Navigator performs explicit page transitions: the initial open, direct
// step jumps during skip-forward, and the endgame finish page.
type Navigator interface {
	Open(ctx context.Context) error
	GotoStep(ctx context.Context, step int) error
	Finish(ctx context.Context) error
}

// RunStore persists run artifacts. SaveAttempt is called live during the run;
// SaveRun upserts the run row (in-progress and final states).
type RunStore interface {
	SaveRun(report *RunReport) error
	SaveAttempt(runID string, attempt StepAttempt) error
}
