// ABOUTME: Tolerant parsing of model replies into action lists.
// ABOUTME: Strips code fences, scans for the outermost JSON block, and normalizes field synonyms.
package strategy

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/2389-research/gauntlet/solver"
)

// rawAction mirrors the loose JSON shape models actually emit. Field synonyms
// accumulate here so normalization stays in one place.
type rawAction struct {
	Kind    string   `json:"kind"`
	Action  string   `json:"action"`
	Type    string   `json:"type"`
	Ref     string   `json:"ref"`
	Element any      `json:"element"` // numeric index into the prompt's element list, or a ref string
	Target  string   `json:"target"`
	To      string   `json:"to"`
	ToRef   string   `json:"to_ref"`
	Text    string   `json:"text"`
	Value   string   `json:"value"`
	Key     string   `json:"key"`
	Keys    string   `json:"keys"`
	Script  string   `json:"script"`
	Code    string   `json:"code"`
	URL     string   `json:"url"`
	Count   int      `json:"count"`
	Times   int      `json:"times"`
	Pixels  int      `json:"pixels"`
	Amount  *float64 `json:"amount"`
	Seconds *float64 `json:"seconds"`
}

// ParseActions extracts a best-effort action list from a model reply. The
// reply may be a bare JSON array, a fenced code block, an {"actions": [...]}
// wrapper, or a single action object; surrounding prose is ignored. Elements
// referenced by 1-based index are resolved against state.Elements. Returns
// nil when nothing parseable remains.
func ParseActions(reply string, state solver.PageState) []solver.Action {
	block := extractJSONBlock(stripFences(reply))
	if block == "" {
		return nil
	}

	items := decodeActionItems(block)
	if len(items) == 0 {
		return nil
	}

	var actions []solver.Action
	for _, item := range items {
		var ra rawAction
		if err := json.Unmarshal(item, &ra); err != nil {
			log.Printf("component=strategy action=parse skip=unreadable err=%v", err)
			continue
		}

		act, ok := normalizeAction(ra, state)
		if !ok {
			continue
		}
		actions = append(actions, act)
	}
	return actions
}

// stripFences removes a markdown code fence wrapper, including a language
// word on the opening fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONBlock returns the outermost balanced JSON array or object in s,
// skipping any prose before it. String contents and escapes are honored so
// brackets inside quoted values do not end the scan.
func extractJSONBlock(s string) string {
	start := -1
	var opener, closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '[' || s[i] == '{' {
			start = i
			opener = s[i]
			if opener == '[' {
				closer = ']'
			} else {
				closer = '}'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = inString
		case c == '"':
			inString = !inString
		case inString:
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeActionItems splits a JSON block into individual action payloads.
// Accepts a bare array, an {"actions": [...]} wrapper, or a lone object.
func decodeActionItems(block string) []json.RawMessage {
	if strings.HasPrefix(block, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(block), &items); err != nil {
			log.Printf("component=strategy action=parse skip=bad-array err=%v", err)
			return nil
		}
		return items
	}

	var wrapper struct {
		Actions []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal([]byte(block), &wrapper); err == nil && wrapper.Actions != nil {
		return wrapper.Actions
	}

	// A single object is treated as a one-action list.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &probe); err != nil {
		return nil
	}
	return []json.RawMessage{json.RawMessage(block)}
}

// normalizeAction converts a loose rawAction into a solver.Action. Unknown
// kinds are dropped with a log line rather than failing the whole batch.
func normalizeAction(ra rawAction, state solver.PageState) (solver.Action, bool) {
	kind := firstNonEmpty(ra.Kind, ra.Action, ra.Type)
	kind = strings.ToLower(strings.TrimSpace(kind))

	count := ra.Count
	if count == 0 {
		count = ra.Times
	}

	switch kind {
	case "fill", "input":
		kind = solver.ActionType
	case "js", "evaluate", "execute":
		kind = solver.ActionEval
	case "sleep", "pause":
		kind = solver.ActionWait
	case "goto", "open":
		kind = solver.ActionNavigate
	case "keypress":
		kind = solver.ActionPress
	case "mouseover":
		kind = solver.ActionHover
	case "dblclick", "doubleclick", "double_click":
		kind = solver.ActionClick
		if count == 0 {
			count = 2
		}
	}

	ref := firstNonEmpty(ra.Ref, ra.Target)
	if ref == "" {
		ref = resolveElement(ra.Element, state.Elements)
	}

	act := solver.Action{Kind: kind, Ref: ref}

	switch kind {
	case solver.ActionClick:
		if count <= 0 {
			count = 1
		}
		act.Count = count
	case solver.ActionType:
		act.Text = firstNonEmpty(ra.Text, ra.Value)
	case solver.ActionPress:
		act.Key = firstNonEmpty(ra.Key, ra.Keys, ra.Value, ra.Text)
	case solver.ActionScroll:
		px := ra.Pixels
		if px == 0 && ra.Amount != nil {
			px = int(*ra.Amount)
		}
		if px == 0 {
			px = 600
		}
		act.Pixels = px
	case solver.ActionWait:
		secs := 0.0
		if ra.Seconds != nil {
			secs = *ra.Seconds
		} else if ra.Amount != nil {
			secs = *ra.Amount
		}
		if secs <= 0 {
			secs = 1
		}
		act.Seconds = secs
	case solver.ActionHover:
		// ref only
	case solver.ActionDrag:
		act.ToRef = firstNonEmpty(ra.ToRef, ra.To)
		if act.ToRef == "" {
			return solver.Action{}, false
		}
	case solver.ActionEval:
		act.Script = firstNonEmpty(ra.Script, ra.Code, ra.Value, ra.Text)
		if act.Script == "" {
			return solver.Action{}, false
		}
	case solver.ActionNavigate:
		act.Text = firstNonEmpty(ra.URL, ra.Value, ra.Text)
		if act.Text == "" {
			return solver.Action{}, false
		}
	default:
		log.Printf("component=strategy action=parse skip=unknown-kind kind=%q", kind)
		return solver.Action{}, false
	}

	return act, true
}

// resolveElement maps a loose element reference to a ref handle. Numbers are
// 1-based indexes into the element list as presented in the prompt; strings
// pass through as refs.
func resolveElement(el any, elements []solver.Element) string {
	switch v := el.(type) {
	case string:
		return v
	case float64:
		idx := int(v)
		if idx >= 1 && idx <= len(elements) {
			return elements[idx-1].Ref
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
