// ABOUTME: Submitter that types a token into the step's input and triggers submission.
// ABOUTME: Locates the textbox and submit button by role and name from a fresh snapshot.
package browser

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/2389-research/gauntlet/solver"
)

// textboxNameHints mark the input meant for token entry when a page carries
// more than one textbox.
var textboxNameHints = []string{"code", "character", "enter"}

// submitNameHints order the candidate buttons for triggering submission.
var submitNameHints = []string{"submit", "next", "go"}

// Submitter implements solver.Submitter over an MCP session.
type Submitter struct {
	caller Caller
}

// NewSubmitter creates a submitter on the given session.
func NewSubmitter(caller Caller) *Submitter {
	return &Submitter{caller: caller}
}

// Submit types the token and submits it. A missing input or a failed type
// reports (false, nil): the token could not be submitted on this surface.
// Errors are transport faults.
func (s *Submitter) Submit(ctx context.Context, token string) (bool, error) {
	state, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}

	box := findTextbox(state.Elements)
	if box == "" {
		log.Printf("component=browser action=submit token=%s err=%q", token, "no textbox on page")
		return false, nil
	}

	args := refArgs(box)
	args["text"] = token
	args["submit"] = false
	if _, err := s.caller.Call(ctx, "browser_type", args); err != nil {
		if errors.Is(err, ErrToolFailed) {
			log.Printf("component=browser action=submit token=%s type-failed err=%v", token, err)
			return false, nil
		}
		return false, err
	}

	if button := findSubmitButton(state.Elements); button != "" {
		if _, err := s.caller.Call(ctx, "browser_click", refArgs(button)); err != nil {
			if !errors.Is(err, ErrToolFailed) {
				return false, err
			}
			// Fall through to Enter when the click bounces off an overlay.
		} else {
			return true, nil
		}
	}

	if _, err := s.caller.Call(ctx, "browser_press_key", map[string]any{"key": "Enter"}); err != nil {
		if errors.Is(err, ErrToolFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HasAdvanced reports whether the surface now shows a step strictly past
// prior. Regressions and unknown steps both count as not advanced.
func (s *Submitter) HasAdvanced(ctx context.Context, prior int) (bool, error) {
	state, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return state.Step > prior, nil
}

func (s *Submitter) snapshot(ctx context.Context) (solver.PageState, error) {
	payload, err := s.caller.Call(ctx, "browser_snapshot", nil)
	if err != nil {
		return solver.PageState{}, err
	}
	return parseSnapshot(payload)
}

// findTextbox picks the token input: a textbox whose name matches an entry
// hint, else the first textbox.
func findTextbox(elements []solver.Element) string {
	for _, hint := range textboxNameHints {
		for _, el := range elements {
			if el.Role == "textbox" && strings.Contains(strings.ToLower(el.Name), hint) {
				return el.Ref
			}
		}
	}
	for _, el := range elements {
		if el.Role == "textbox" {
			return el.Ref
		}
	}
	return ""
}

// findSubmitButton picks the button most likely to submit the token entry.
func findSubmitButton(elements []solver.Element) string {
	for _, hint := range submitNameHints {
		for _, el := range elements {
			if el.Role == "button" && strings.Contains(strings.ToLower(el.Name), hint) {
				return el.Ref
			}
		}
	}
	return ""
}
