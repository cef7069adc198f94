// ABOUTME: Actuator mapping solver actions onto Playwright MCP tools.
// ABOUTME: Tool-reported failures on flaky kinds are expected misses; transport faults are real errors.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/2389-research/gauntlet/solver"
)

// flakyKinds are action kinds whose tool-reported failures are an expected
// part of probing a page: stale refs, detached nodes, script errors from a
// model's guess. The attempt continues past them.
var flakyKinds = map[string]bool{
	solver.ActionClick: true,
	solver.ActionType:  true,
	solver.ActionHover: true,
	solver.ActionDrag:  true,
	solver.ActionEval:  true,
}

// Actuator implements solver.Actuator over an MCP session.
type Actuator struct {
	caller Caller
	sleep  func(ctx context.Context, d time.Duration)
}

// NewActuator creates an actuator on the given session.
func NewActuator(caller Caller) *Actuator {
	return &Actuator{caller: caller, sleep: sleepWithContext}
}

// Execute performs one action and settles afterwards. The boolean reports
// whether the surface accepted the action; errors are transport faults.
func (a *Actuator) Execute(ctx context.Context, action solver.Action, settle time.Duration) (bool, error) {
	ok, err := a.perform(ctx, action)
	if err != nil {
		if errors.Is(err, ErrToolFailed) && flakyKinds[action.Kind] {
			log.Printf("component=browser action=execute kind=%s expected-failure err=%v", action.Kind, err)
			return false, nil
		}
		return false, err
	}
	if ok && action.Kind != solver.ActionWait && settle > 0 {
		a.sleep(ctx, settle)
	}
	return ok, nil
}

func (a *Actuator) perform(ctx context.Context, action solver.Action) (bool, error) {
	switch action.Kind {
	case solver.ActionClick:
		count := action.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if _, err := a.caller.Call(ctx, "browser_click", refArgs(action.Ref)); err != nil {
				return false, err
			}
		}
		return true, nil

	case solver.ActionType:
		args := refArgs(action.Ref)
		args["text"] = action.Text
		args["submit"] = false
		_, err := a.caller.Call(ctx, "browser_type", args)
		return err == nil, err

	case solver.ActionPress:
		_, err := a.caller.Call(ctx, "browser_press_key", map[string]any{"key": action.Key})
		return err == nil, err

	case solver.ActionScroll:
		script := fmt.Sprintf("() => window.scrollBy(0, %d)", action.Pixels)
		_, err := a.caller.Call(ctx, "browser_evaluate", map[string]any{"function": script})
		return err == nil, err

	case solver.ActionWait:
		_, err := a.caller.Call(ctx, "browser_wait_for", map[string]any{"time": action.Seconds})
		return err == nil, err

	case solver.ActionHover:
		_, err := a.caller.Call(ctx, "browser_hover", refArgs(action.Ref))
		return err == nil, err

	case solver.ActionDrag:
		args := map[string]any{
			"startElement": action.Ref,
			"startRef":     action.Ref,
			"endElement":   action.ToRef,
			"endRef":       action.ToRef,
		}
		_, err := a.caller.Call(ctx, "browser_drag", args)
		return err == nil, err

	case solver.ActionEval:
		_, err := a.caller.Call(ctx, "browser_evaluate", map[string]any{"function": wrapScript(action.Script)})
		return err == nil, err

	case solver.ActionNavigate:
		_, err := a.caller.Call(ctx, "browser_navigate", map[string]any{"url": action.Text})
		return err == nil, err

	default:
		log.Printf("component=browser action=execute kind=%q unknown", action.Kind)
		return false, nil
	}
}

// refArgs builds the element/ref argument pair the Playwright tools expect.
// The element description is informational; the ref is what resolves.
func refArgs(ref string) map[string]any {
	return map[string]any{"element": ref, "ref": ref}
}

// wrapScript turns a bare expression or statement into the function form
// browser_evaluate requires. Scripts already shaped as functions pass through.
func wrapScript(script string) string {
	trimmed := strings.TrimSpace(script)
	if strings.HasPrefix(trimmed, "(") || strings.HasPrefix(trimmed, "function") || strings.HasPrefix(trimmed, "async") {
		return trimmed
	}
	return "() => { " + trimmed + " }"
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
