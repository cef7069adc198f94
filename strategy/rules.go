// ABOUTME: Tier 0 deterministic instruction-pattern dispatch, no model calls.
// ABOUTME: Matches generic interface verbs in the instruction text and resolves targets from observed elements.
package strategy

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/2389-research/gauntlet/solver"
)

// rule pairs an instruction pattern with an action factory. The factory
// receives the regex submatches and the page state, and may return nil when
// its targets do not resolve to observed elements.
type rule struct {
	pattern *regexp.Regexp
	build   func(m []string, state solver.PageState) []solver.Action
}

// Ordered rule table. Patterns are tested against the lowercased instruction;
// the first rule that yields a non-empty action list wins. More specific
// patterns come before generic ones: "hover ... to reveal" must not fall into
// the reveal-click rule.
var ruleTable = []rule{
	// "wait N seconds", padded for timer misalignment
	{
		regexp.MustCompile(`wait.*?(\d+)\s*second`),
		func(m []string, _ solver.PageState) []solver.Action {
			n, _ := strconv.Atoi(m[1])
			return []solver.Action{{Kind: solver.ActionWait, Seconds: float64(n + 2)}}
		},
	},
	// "scroll down at least N px" / "scroll N pixels", overshot for rounding
	{
		regexp.MustCompile(`scroll.*?(\d+)\s*(?:px|pixel)`),
		func(m []string, _ solver.PageState) []solver.Action {
			n, _ := strconv.Atoi(m[1])
			return []solver.Action{{Kind: solver.ActionScroll, Pixels: n + 100}}
		},
	},
	{
		regexp.MustCompile(`scroll\s+(?:all\s+the\s+way\s+)?(?:to\s+the\s+)?bottom`),
		func(_ []string, _ solver.PageState) []solver.Action {
			return []solver.Action{{Kind: solver.ActionScroll, Pixels: 20000}}
		},
	},
	{
		regexp.MustCompile(`scroll\s+up`),
		func(_ []string, _ solver.PageState) []solver.Action {
			return []solver.Action{{Kind: solver.ActionScroll, Pixels: -600}}
		},
	},
	{
		regexp.MustCompile(`scroll\s+down`),
		func(_ []string, _ solver.PageState) []solver.Action {
			return []solver.Action{{Kind: solver.ActionScroll, Pixels: 600}}
		},
	},
	// drag "Name" to "Name", only when both names resolve
	{
		regexp.MustCompile(`drag\s+(?:the\s+)?["'\x{201c}](.+?)["'\x{201d}]\s+(?:on\s*)?(?:in)?to\s+(?:the\s+)?["'\x{201c}](.+?)["'\x{201d}]`),
		func(m []string, state solver.PageState) []solver.Action {
			src := findByName(state.Elements, m[1])
			dst := findByName(state.Elements, m[2])
			if src == "" || dst == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionDrag, Ref: src, ToRef: dst}}
		},
	},
	// "double-click the button"
	{
		regexp.MustCompile(`double[\s-]?click`),
		func(_ []string, state solver.PageState) []solver.Action {
			ref := clickTarget(state.Elements)
			if ref == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionClick, Ref: ref, Count: 2}}
		},
	},
	// "click the button N times"
	{
		regexp.MustCompile(`click.*?(\d+)\s*time`),
		func(m []string, state solver.PageState) []solver.Action {
			n, _ := strconv.Atoi(m[1])
			ref := clickTarget(state.Elements)
			if ref == "" || n < 1 {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionClick, Ref: ref, Count: n}}
		},
	},
	// click "Name", quoted button name in the instruction
	{
		regexp.MustCompile(`click\s+(?:the\s+)?["'\x{201c}](.+?)["'\x{201d}]`),
		func(m []string, state solver.PageState) []solver.Action {
			ref := findByName(state.Elements, m[1])
			if ref == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionClick, Ref: ref, Count: 1}}
		},
	},
	// type/enter a quoted literal into the first textbox
	{
		regexp.MustCompile(`(?:type|enter)\s+["'\x{201c}](.+?)["'\x{201d}]`),
		func(m []string, state solver.PageState) []solver.Action {
			ref := findByRole(state.Elements, "textbox")
			if ref == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionType, Ref: ref, Text: m[1]}}
		},
	},
	// press quoted keys in sequence: press "a", "b", "c"
	{
		regexp.MustCompile(`press\s+(?:the\s+keys?\s+)?((?:["'\x{201c}][^"'\x{201d}]+["'\x{201d}]\s*,?\s*(?:and\s+)?)+)(?:in\s+(?:sequence|order))?`),
		func(m []string, _ solver.PageState) []solver.Action {
			keys := quotedRe.FindAllStringSubmatch(m[1], -1)
			if len(keys) == 0 {
				return nil
			}
			actions := make([]solver.Action, 0, len(keys))
			for _, k := range keys {
				actions = append(actions, solver.Action{Kind: solver.ActionPress, Key: normalizeKey(k[1])})
			}
			return actions
		},
	},
	// "press Enter" and friends
	{
		regexp.MustCompile(`press\s+(?:the\s+)?(\w+)(?:\s+key)?`),
		func(m []string, _ solver.PageState) []solver.Action {
			return []solver.Action{{Kind: solver.ActionPress, Key: normalizeKey(m[1])}}
		},
	},
	// hover with an explicit duration; hold past the threshold
	{
		regexp.MustCompile(`hover.*?(\d+)\s*second`),
		func(m []string, state solver.PageState) []solver.Action {
			n, _ := strconv.Atoi(m[1])
			ref := hoverTarget(state.Elements)
			if ref == "" {
				return nil
			}
			return []solver.Action{
				{Kind: solver.ActionHover, Ref: ref},
				{Kind: solver.ActionWait, Seconds: float64(n + 2)},
			}
		},
	},
	{
		regexp.MustCompile(`hover`),
		func(_ []string, state solver.PageState) []solver.Action {
			ref := hoverTarget(state.Elements)
			if ref == "" {
				return nil
			}
			return []solver.Action{
				{Kind: solver.ActionHover, Ref: ref},
				{Kind: solver.ActionWait, Seconds: 3},
			}
		},
	},
	// reveal / show-hidden phrasing clicks a matching button
	{
		regexp.MustCompile(`reveal|show\s+(?:the\s+)?hidden|hidden\s+(?:code|element)`),
		func(_ []string, state solver.PageState) []solver.Action {
			ref := clickTarget(state.Elements, "reveal", "show")
			if ref == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionClick, Ref: ref, Count: 1}}
		},
	},
	// generic "click the button" only when exactly one button is visible
	{
		regexp.MustCompile(`click.*button`),
		func(_ []string, state solver.PageState) []solver.Action {
			ref := soleButton(state.Elements)
			if ref == "" {
				return nil
			}
			return []solver.Action{{Kind: solver.ActionClick, Ref: ref, Count: 1}}
		},
	},
}

var quotedRe = regexp.MustCompile(`["'\x{201c}]([^"'\x{201d}]+)["'\x{201d}]`)

// Rules is the tier-0 strategy: pure pattern dispatch over the instruction
// text with targets resolved from the observed element list. Identical input
// always yields an identical proposal.
type Rules struct{}

// NewRules creates the deterministic tier-0 strategy.
func NewRules() *Rules {
	return &Rules{}
}

// Tier identifies this strategy as tier 0.
func (r *Rules) Tier() solver.Tier {
	return solver.TierRules
}

// Propose matches the instruction against the rule table. An empty proposal
// means no pattern applied and the caller should escalate.
func (r *Rules) Propose(_ context.Context, state solver.PageState, _ *solver.History) ([]solver.Action, error) {
	instr := strings.ToLower(state.Instruction)
	if instr == "" {
		return nil, nil
	}
	for _, rl := range ruleTable {
		m := rl.pattern.FindStringSubmatch(instr)
		if m == nil {
			continue
		}
		if actions := rl.build(m, state); len(actions) > 0 {
			return actions, nil
		}
	}
	return nil, nil
}

// findByName returns the ref of the first element whose accessible name
// contains the given name, case-insensitively.
func findByName(elements []solver.Element, name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return ""
	}
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Name), needle) {
			return el.Ref
		}
	}
	return ""
}

// findByRole returns the ref of the first element with the given role.
func findByRole(elements []solver.Element, role string) string {
	for _, el := range elements {
		if el.Role == role {
			return el.Ref
		}
	}
	return ""
}

// clickTarget picks a button to click: first a button whose name contains one
// of the hints, then the first button at all.
func clickTarget(elements []solver.Element, hints ...string) string {
	for _, h := range hints {
		for _, el := range elements {
			if el.Role == "button" && strings.Contains(strings.ToLower(el.Name), h) {
				return el.Ref
			}
		}
	}
	return findByRole(elements, "button")
}

// soleButton returns the only visible button, or "" when the count is not
// exactly one. Ambiguous pages escalate instead of guessing.
func soleButton(elements []solver.Element) string {
	ref := ""
	for _, el := range elements {
		if el.Role != "button" {
			continue
		}
		if ref != "" {
			return ""
		}
		ref = el.Ref
	}
	return ref
}

// hoverTarget finds the element hover instructions point at, preferring one
// whose name mentions hovering.
func hoverTarget(elements []solver.Element) string {
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Name), "hover") {
			return el.Ref
		}
	}
	return ""
}

// normalizeKey capitalizes single-word key names the way browser drivers
// expect (enter -> Enter, tab -> Tab). Single letters stay lowercase.
func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 1 {
		return key
	}
	return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
}
