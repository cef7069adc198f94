// ABOUTME: Tests for token submission: input targeting, button fallback, and advancement polling.
// ABOUTME: The fake Caller scripts snapshot and tool replies per scenario.
package browser

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

const submitTree = `- paragraph [ref=e1]: Enter the code to proceed.
- textbox "Enter 6-character code" [ref=e5]
- button "Decoy" [ref=e2]
- button "Submit" [ref=e6]
`

func submitFake(tree string, answers map[string]error) *fakeCaller {
	return &fakeCaller{
		callFn: func(_ context.Context, tool string, _ map[string]any) (string, error) {
			if tool == "browser_snapshot" {
				return payloadWith("http://gauntlet.test/step3", "Gauntlet", tree), nil
			}
			return "", answers[tool]
		},
	}
}

func TestSubmitTypesTokenAndClicksSubmit(t *testing.T) {
	fake := submitFake(submitTree, nil)
	s := NewSubmitter(fake)

	ok, err := s.Submit(context.Background(), "AB12CD")
	if err != nil || !ok {
		t.Fatalf("Submit = (%t, %v), want (true, nil)", ok, err)
	}
	if !reflect.DeepEqual(fake.tools(), []string{"browser_snapshot", "browser_type", "browser_click"}) {
		t.Fatalf("tools = %v", fake.tools())
	}

	typeCall := fake.calls[1]
	if typeCall.args["ref"] != "e5" || typeCall.args["text"] != "AB12CD" {
		t.Errorf("type args = %v", typeCall.args)
	}
	if fake.calls[2].args["ref"] != "e6" {
		t.Errorf("click args = %v, want the Submit button", fake.calls[2].args)
	}
}

func TestSubmitFallsBackToEnterWithoutSubmitButton(t *testing.T) {
	tree := `- textbox "Enter 6-character code" [ref=e5]
- button "Decoy" [ref=e2]
`
	fake := submitFake(tree, nil)
	s := NewSubmitter(fake)

	ok, err := s.Submit(context.Background(), "AB12CD")
	if err != nil || !ok {
		t.Fatalf("Submit = (%t, %v), want (true, nil)", ok, err)
	}
	if !reflect.DeepEqual(fake.tools(), []string{"browser_snapshot", "browser_type", "browser_press_key"}) {
		t.Fatalf("tools = %v, want Enter fallback", fake.tools())
	}
	if fake.calls[2].args["key"] != "Enter" {
		t.Errorf("press args = %v", fake.calls[2].args)
	}
}

func TestSubmitPrefersCodeNamedTextbox(t *testing.T) {
	tree := `- textbox "Search" [ref=e3]
- textbox "Enter the code" [ref=e5]
- button "Submit" [ref=e6]
`
	fake := submitFake(tree, nil)
	s := NewSubmitter(fake)

	if _, err := s.Submit(context.Background(), "AB12CD"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if fake.calls[1].args["ref"] != "e5" {
		t.Errorf("typed into %v, want the code-named textbox e5", fake.calls[1].args["ref"])
	}
}

func TestSubmitWithoutTextboxReportsNotSubmitted(t *testing.T) {
	fake := submitFake("- button \"Submit\" [ref=e6]\n", nil)
	s := NewSubmitter(fake)

	ok, err := s.Submit(context.Background(), "AB12CD")
	if err != nil || ok {
		t.Fatalf("Submit = (%t, %v), want (false, nil)", ok, err)
	}
	if !reflect.DeepEqual(fake.tools(), []string{"browser_snapshot"}) {
		t.Fatalf("tools = %v, want no typing without a textbox", fake.tools())
	}
}

func TestSubmitTypeToolFailureReportsNotSubmitted(t *testing.T) {
	fake := submitFake(submitTree, map[string]error{
		"browser_type": fmt.Errorf("%w: browser_type: ref stale", ErrToolFailed),
	})
	s := NewSubmitter(fake)

	ok, err := s.Submit(context.Background(), "AB12CD")
	if err != nil || ok {
		t.Fatalf("Submit = (%t, %v), want (false, nil)", ok, err)
	}
}

func TestSubmitClickFailureFallsBackToEnter(t *testing.T) {
	fake := submitFake(submitTree, map[string]error{
		"browser_click": fmt.Errorf("%w: browser_click: intercepted", ErrToolFailed),
	})
	s := NewSubmitter(fake)

	ok, err := s.Submit(context.Background(), "AB12CD")
	if err != nil || !ok {
		t.Fatalf("Submit = (%t, %v), want Enter fallback to succeed", ok, err)
	}
	if !reflect.DeepEqual(fake.tools(), []string{"browser_snapshot", "browser_type", "browser_click", "browser_press_key"}) {
		t.Fatalf("tools = %v", fake.tools())
	}
}

func TestSubmitTransportErrorSurfaces(t *testing.T) {
	transportErr := errors.New("session closed")
	fake := &fakeCaller{
		callFn: func(context.Context, string, map[string]any) (string, error) {
			return "", transportErr
		},
	}
	s := NewSubmitter(fake)

	if _, err := s.Submit(context.Background(), "AB12CD"); !errors.Is(err, transportErr) {
		t.Fatalf("err = %v, want transport error", err)
	}
}

func TestHasAdvancedComparesStrictly(t *testing.T) {
	fake := &fakeCaller{
		callFn: func(_ context.Context, tool string, _ map[string]any) (string, error) {
			return payloadWith("http://gauntlet.test/step4", "Gauntlet", "- paragraph [ref=e1]: next\n"), nil
		},
	}
	s := NewSubmitter(fake)

	advanced, err := s.HasAdvanced(context.Background(), 3)
	if err != nil || !advanced {
		t.Fatalf("HasAdvanced(3) = (%t, %v), want (true, nil)", advanced, err)
	}
	same, err := s.HasAdvanced(context.Background(), 4)
	if err != nil || same {
		t.Fatalf("HasAdvanced(4) = (%t, %v), want (false, nil)", same, err)
	}
}
