// ABOUTME: TokenScanner that hunts the page for fresh token candidates after an action batch.
// ABOUTME: Scans the accessibility snapshot first, then falls back to a JS sweep of hidden DOM corners.
package browser

import (
	"context"
	"log"
	"strings"

	"github.com/2389-research/gauntlet/solver"
)

// hiddenScanJS sweeps places the accessibility tree cannot see: element
// attributes, hidden or transparent elements, and HTML comments. Returns the
// first token-format match or null.
const hiddenScanJS = `() => {
  const exactRe = /^[A-Z0-9]{6}$/;
  const partialRe = /\b([A-Z0-9]{6})\b/;
  const fp = /^(SUBMIT|SCROLL|CLICKS?|REVEAL|BUTTON|HIDDEN|STEPBAR|STEP\d+|HELLOA|CANVAS|MOVING|COMPLE|DECODE|STRING|BASE64|PLEASE|SELECT|OPTION)$/;
  for (const el of document.querySelectorAll('*')) {
    for (const attr of el.attributes) {
      if (attr.name === 'class' || attr.name === 'style' || attr.name === 'src') continue;
      if (exactRe.test(attr.value) && !fp.test(attr.value)) return attr.value;
    }
  }
  for (const el of document.querySelectorAll('*')) {
    if (el.childElementCount !== 0) continue;
    const text = (el.textContent || '').trim();
    if (exactRe.test(text) && !fp.test(text)) return text;
  }
  for (const el of document.querySelectorAll('*')) {
    const s = window.getComputedStyle(el);
    const hidden = s.display === 'none' || s.visibility === 'hidden' ||
      s.opacity === '0' || s.color === 'transparent' ||
      (el.offsetWidth === 0 && el.offsetHeight === 0);
    if (!hidden) continue;
    const m = (el.textContent || '').match(partialRe);
    if (m && !fp.test(m[1])) return m[1];
  }
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_COMMENT, null, false);
  let comment;
  while ((comment = walker.nextNode())) {
    const m = (comment.textContent || '').match(partialRe);
    if (m && !fp.test(m[1])) return m[1];
  }
  return null;
}`

// Scanner implements solver.TokenScanner over an MCP session.
type Scanner struct {
	caller Caller
}

// NewScanner creates a scanner on the given session.
func NewScanner(caller Caller) *Scanner {
	return &Scanner{caller: caller}
}

// Find looks for an unconsumed token candidate. The visible snapshot is
// checked first; when it turns up nothing, a JS sweep covers hidden DOM.
// Only transport faults are errors; finding nothing is (_, false, nil).
func (s *Scanner) Find(ctx context.Context, ledger *solver.TokenLedger) (string, bool, error) {
	payload, err := s.caller.Call(ctx, "browser_snapshot", nil)
	if err != nil {
		return "", false, err
	}
	if token, ok := pickToken(payload, ledger); ok {
		return token, true, nil
	}

	// Hidden tokens do not surface in the accessibility tree.
	result, err := s.caller.Call(ctx, "browser_evaluate", map[string]any{"function": hiddenScanJS})
	if err != nil {
		// A failed sweep is not fatal; the snapshot already said no.
		log.Printf("component=browser action=scan sweep=hidden err=%v", err)
		return "", false, nil
	}
	if token, ok := pickToken(result, ledger); ok {
		return token, true, nil
	}
	return "", false, nil
}

// pickToken returns the first token-format candidate in text that passes the
// false-positive filter and is not already consumed.
func pickToken(text string, ledger *solver.TokenLedger) (string, bool) {
	for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
		candidate := m[1]
		if tokenFalsePositive.MatchString(candidate) {
			continue
		}
		if ledger != nil && ledger.Contains(candidate) {
			continue
		}
		if strings.Contains(text, "[ref="+candidate+"]") {
			continue
		}
		return candidate, true
	}
	return "", false
}
