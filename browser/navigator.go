// ABOUTME: Navigator for direct URL movement: target root, numbered steps, and the finish page.
// ABOUTME: Runs the overlay cleaner after each successful navigation; cleaner failures are ignored.
package browser

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// cleanerJS hides high z-index fixed and absolute overlays that sit over the
// page and swallow clicks. Elements carrying a token or a success message
// keep their text but lose pointer events. Nothing is removed from the DOM.
const cleanerJS = `() => {
  const tokenRe = /[A-Z0-9]{6}/;
  document.querySelectorAll('*').forEach(el => {
    const s = getComputedStyle(el);
    const z = parseInt(s.zIndex);
    if (!isNaN(z) && z > 500 && (s.position === 'fixed' || s.position === 'absolute')) {
      const text = (el.textContent || '').trim();
      if (/code revealed|your code/i.test(text) ||
          (tokenRe.test(text) && /green|success/i.test(el.className || ''))) {
        el.style.setProperty('pointer-events', 'none', 'important');
        return;
      }
      el.style.setProperty('display', 'none', 'important');
    }
  });
  window.scrollTo(0, 0);
}`

// Navigator implements solver.Navigator over an MCP session.
type Navigator struct {
	caller Caller
	base   string
	sleep  func(ctx context.Context, d time.Duration)
}

// NewNavigator creates a navigator rooted at the target URL.
func NewNavigator(caller Caller, targetURL string) *Navigator {
	return &Navigator{
		caller: caller,
		base:   strings.TrimRight(targetURL, "/"),
		sleep:  sleepWithContext,
	}
}

// Open navigates to the challenge root.
func (n *Navigator) Open(ctx context.Context) error {
	return n.goTo(ctx, n.base)
}

// GotoStep navigates straight to a numbered step page.
func (n *Navigator) GotoStep(ctx context.Context, step int) error {
	return n.goTo(ctx, fmt.Sprintf("%s/step%d", n.base, step))
}

// Finish navigates to the completion page.
func (n *Navigator) Finish(ctx context.Context) error {
	return n.goTo(ctx, n.base+"/finish")
}

func (n *Navigator) goTo(ctx context.Context, url string) error {
	if _, err := n.caller.Call(ctx, "browser_navigate", map[string]any{"url": url}); err != nil {
		return err
	}
	n.clean(ctx)
	return nil
}

// clean runs the overlay cleaner twice with a short gap so re-rendered
// overlays get caught too.
func (n *Navigator) clean(ctx context.Context) {
	for i := 0; i < 2; i++ {
		if _, err := n.caller.Call(ctx, "browser_evaluate", map[string]any{"function": cleanerJS}); err != nil {
			log.Printf("component=browser action=clean err=%v", err)
			return
		}
		if i == 0 {
			n.sleep(ctx, 50*time.Millisecond)
		}
	}
}
