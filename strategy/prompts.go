// ABOUTME: Prompt construction for the model and vision tiers.
// ABOUTME: Renders page state into numbered element lists and describes the action vocabulary.
package strategy

import (
	"fmt"
	"strings"

	"github.com/2389-research/gauntlet/solver"
)

// actionSystemPrompt frames the task and pins the reply format. Kept tight so
// small models stay on format.
const actionSystemPrompt = `You are controlling a web page to complete an interface challenge.
You will be given the page's instruction text and a numbered list of interactive elements.
Reply with a JSON array of actions to perform, in order.

Available actions:
- {"kind": "click", "ref": "e3"} or {"kind": "click", "element": 3, "count": 5}
- {"kind": "type", "ref": "e2", "text": "hello"}
- {"kind": "press", "key": "Enter"}
- {"kind": "scroll", "pixels": 600} (negative scrolls up)
- {"kind": "wait", "seconds": 3}
- {"kind": "hover", "ref": "e4"}
- {"kind": "drag", "ref": "e5", "to_ref": "e6"}
- {"kind": "eval", "script": "document.title"}

Use "ref" values from the element list, or "element" with the list number.
Common patterns:
- "Click the button N times" needs count N, not N separate clicks.
- "Wait N seconds" should wait N+1 to cover timer drift.
- "Scroll down at least N px" should scroll N+100.
- Hidden content often needs a click or hover before it appears.

Return ONLY the JSON array, no explanation.`

// buildStepPrompt renders the current page for a first-look proposal.
func buildStepPrompt(state solver.PageState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STEP %d\n", state.Step)
	fmt.Fprintf(&b, "INSTRUCTION: %s\n\n", state.Instruction)
	b.WriteString("ELEMENTS:\n")
	b.WriteString(renderElements(state.Elements))
	b.WriteString("\nReply with the JSON array of actions that completes the instruction.")
	return b.String()
}

// buildRetryPrompt renders the page plus the failure history for an
// escalated attempt. The model is told plainly that the obvious reading
// already failed and is pushed toward a different approach.
func buildRetryPrompt(state solver.PageState, hist *solver.History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STEP %d (RETRY)\n", state.Step)
	fmt.Fprintf(&b, "INSTRUCTION: %s\n\n", state.Instruction)
	b.WriteString("PREVIOUS ATTEMPTS FAILED:\n")
	if hist == nil || hist.Len() == 0 {
		b.WriteString("(no attempt detail recorded)\n")
	} else {
		for _, line := range hist.Lines() {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nELEMENTS:\n")
	b.WriteString(renderElements(state.Elements))
	b.WriteString(`
The straightforward reading of the instruction did not work. Try a different approach:
- content may be hidden until a click, hover, or scroll
- the page may need a wait before the code appears
- the task may need several actions in sequence
- check for elements whose names hint at the real mechanism

Reply with ONLY the JSON array of actions.`)
	return b.String()
}

// renderElements numbers the interactive elements the way the parser resolves
// them: 1-based, in observation order.
func renderElements(elements []solver.Element) string {
	if len(elements) == 0 {
		return "(none observed)\n"
	}
	var b strings.Builder
	for i, el := range elements {
		name := el.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&b, "%d. %s %q [ref=%s]\n", i+1, el.Role, name, el.Ref)
	}
	return b.String()
}
