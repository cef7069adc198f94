// ABOUTME: Parses browser_snapshot payloads into solver.PageState.
// ABOUTME: Walks the YAML accessibility tree, scores instruction text, and scans for token candidates.
package browser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/gauntlet/solver"
)

// tokenRe matches challenge tokens: exactly 6 uppercase alphanumerics on
// word boundaries.
var tokenRe = regexp.MustCompile(`\b([A-Z0-9]{6})\b`)

// tokenFalsePositive rejects 6-char words that show up in page chrome and
// markup rather than as tokens.
var tokenFalsePositive = regexp.MustCompile(
	`^(SUBMIT|SCROLL|CLICKS?|REVEAL|BUTTON|HIDDEN|STEPBAR|STEP\d+|HELLOA|CANVAS|MOVING|COMPLE|DECODE|STRING|BASE64|PLEASE|SELECT|OPTION)$`)

var (
	stepURLRe  = regexp.MustCompile(`/step(\d+)\b`)
	stepTextRe = regexp.MustCompile(`(?i)step\s*(\d+)`)
	refRe      = regexp.MustCompile(`\[ref=([^\]]+)\]`)
	roleRe     = regexp.MustCompile(`^([A-Za-z]+)`)
	quotedRe   = regexp.MustCompile(`"(.*?)"`)
	labelRe    = regexp.MustCompile(`^[\w\s]+:\s*$`)
)

// instructionHints are the interface verbs that mark a line as the step's
// task description rather than filler.
var instructionHints = []string{
	"click", "scroll", "wait", "enter", "find", "reveal",
	"hidden", "inspect", "drag", "type", "hover", "solve",
	"complete", "press", "select", "choose",
}

// interactiveRoles are the accessibility roles surfaced as actionable
// elements. Named generics are included separately for hover and drag
// targets that carry only a label.
var interactiveRoles = map[string]bool{
	"button":   true,
	"textbox":  true,
	"link":     true,
	"combobox": true,
	"checkbox": true,
	"slider":   true,
	"img":      true,
}

// ariaNode is one node of the flattened accessibility tree.
type ariaNode struct {
	Role string
	Name string
	Ref  string
	Text string // inline text content attached to the node
}

// parseSnapshot turns a raw browser_snapshot payload into a PageState.
func parseSnapshot(payload string) (solver.PageState, error) {
	url, title, body := splitPayload(payload)

	nodes, err := parseAriaTree(body)
	if err != nil {
		return solver.PageState{}, fmt.Errorf("browser: parsing accessibility tree: %w", err)
	}

	state := solver.PageState{
		URL:         url,
		Title:       title,
		Instruction: extractInstruction(nodes),
		Elements:    extractElements(nodes),
	}
	state.ElementCount = len(state.Elements)
	state.Step = extractStep(url, nodes)
	state.VisibleTokens = extractTokens(nodes)
	state.ErrorPage = detectErrorPage(title, nodes)
	return state, nil
}

// splitPayload separates the metadata lines and the fenced YAML tree from a
// tool reply. Payloads without the fence are treated as bare YAML.
func splitPayload(payload string) (url, title, body string) {
	lines := strings.Split(payload, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if v, ok := strings.CutPrefix(trimmed, "Page URL:"); ok {
			url = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(trimmed, "Page Title:"); ok {
			title = strings.TrimSpace(v)
		}
	}

	if start := strings.Index(payload, "```yaml"); start >= 0 {
		rest := payload[start+len("```yaml"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return url, title, rest[:end]
		}
		return url, title, rest
	}
	if idx := strings.Index(payload, "Page Snapshot:"); idx >= 0 {
		return url, title, payload[idx+len("Page Snapshot:"):]
	}
	return url, title, payload
}

// parseAriaTree decodes the YAML tree and flattens it depth-first.
func parseAriaTree(body string) ([]ariaNode, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	var items []any
	if err := yaml.Unmarshal([]byte(body), &items); err != nil {
		return nil, err
	}
	var nodes []ariaNode
	walkAria(items, &nodes)
	return nodes, nil
}

func walkAria(items []any, out *[]ariaNode) {
	for _, item := range items {
		switch v := item.(type) {
		case string:
			*out = append(*out, parseNodeHead(v, ""))
		case map[string]any:
			for key, child := range v {
				// Property keys like /url carry link metadata, not nodes.
				if strings.HasPrefix(key, "/") {
					continue
				}
				switch c := child.(type) {
				case string:
					*out = append(*out, parseNodeHead(key, c))
				case []any:
					*out = append(*out, parseNodeHead(key, ""))
					walkAria(c, out)
				default:
					*out = append(*out, parseNodeHead(key, ""))
				}
			}
		}
	}
}

// parseNodeHead splits a node line like `button "Reveal Code" [ref=e4]` into
// role, quoted name, and ref handle.
func parseNodeHead(head, text string) ariaNode {
	n := ariaNode{Text: strings.TrimSpace(text)}
	if m := roleRe.FindStringSubmatch(head); m != nil {
		n.Role = m[1]
	}
	if m := quotedRe.FindStringSubmatch(head); m != nil {
		n.Name = m[1]
	}
	if m := refRe.FindStringSubmatch(head); m != nil {
		n.Ref = m[1]
	}
	return n
}

// extractInstruction finds the step's task description: the first
// substantial text containing an interface verb. Short category labels
// ("Click to Reveal:") are skipped. Falls back to the longest heading or
// paragraph text when no verb line exists.
func extractInstruction(nodes []ariaNode) string {
	for _, n := range nodes {
		for _, candidate := range []string{n.Text, n.Name} {
			candidate = strings.TrimSpace(strings.Trim(candidate, `"`))
			if len(candidate) < 15 || labelRe.MatchString(candidate) {
				continue
			}
			lower := strings.ToLower(candidate)
			for _, hint := range instructionHints {
				if strings.Contains(lower, hint) {
					return candidate
				}
			}
		}
	}
	for _, n := range nodes {
		if n.Role != "heading" && n.Role != "paragraph" && n.Role != "text" {
			continue
		}
		candidate := strings.TrimSpace(strings.Trim(firstNonEmptyText(n), `"`))
		if len(candidate) > 20 && !labelRe.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

// extractElements collects actionable nodes that carry a ref, deduplicated
// by ref in document order.
func extractElements(nodes []ariaNode) []solver.Element {
	var elements []solver.Element
	seen := map[string]bool{}
	for _, n := range nodes {
		if n.Ref == "" || seen[n.Ref] {
			continue
		}
		if !interactiveRoles[n.Role] && !(n.Role == "generic" && n.Name != "") {
			continue
		}
		seen[n.Ref] = true
		elements = append(elements, solver.Element{Role: n.Role, Name: n.Name, Ref: n.Ref})
	}
	return elements
}

// extractStep reads the step number from the URL, falling back to "Step N"
// markers in page text.
func extractStep(url string, nodes []ariaNode) int {
	if m := stepURLRe.FindStringSubmatch(url); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	for _, n := range nodes {
		for _, text := range []string{n.Name, n.Text} {
			if m := stepTextRe.FindStringSubmatch(text); m != nil {
				v, _ := strconv.Atoi(m[1])
				return v
			}
		}
	}
	return 0
}

// extractTokens scans all node text for token-format candidates, filtered
// against the false-positive list, deduplicated in order.
func extractTokens(nodes []ariaNode) []string {
	var tokens []string
	seen := map[string]bool{}
	for _, n := range nodes {
		for _, text := range []string{n.Name, n.Text} {
			for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
				candidate := m[1]
				if seen[candidate] || tokenFalsePositive.MatchString(candidate) {
					continue
				}
				seen[candidate] = true
				tokens = append(tokens, candidate)
			}
		}
	}
	return tokens
}

// detectErrorPage reports whether the surface rendered an error or
// not-found page instead of a step.
func detectErrorPage(title string, nodes []ariaNode) bool {
	lower := strings.ToLower(title)
	if strings.Contains(lower, "404") || strings.Contains(lower, "not found") || strings.HasPrefix(lower, "error") {
		return true
	}
	for _, n := range nodes {
		if n.Role != "heading" {
			continue
		}
		h := strings.ToLower(firstNonEmptyText(n))
		if strings.Contains(h, "404") || strings.Contains(h, "page not found") {
			return true
		}
	}
	return false
}

func firstNonEmptyText(n ariaNode) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Text
}
