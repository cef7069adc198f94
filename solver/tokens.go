// ABOUTME: Append-only ledger of every token submitted during a run, accepted or not.
// ABOUTME: A token enters on first submission and never leaves; nothing is ever resubmitted.
package solver

import "sync"

// TokenLedger records every token the run has consumed. Entries are never
// removed: a rejected or faulted submission still consumes its token, and a
// consumed token is never submitted again within the run.
type TokenLedger struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewTokenLedger returns an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{seen: make(map[string]struct{})}
}

// Add records a token. Returns false if the token was already present.
func (l *TokenLedger) Add(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[token]; ok {
		return false
	}
	l.seen[token] = struct{}{}
	l.order = append(l.order, token)
	return true
}

// Contains reports whether the token has been consumed.
func (l *TokenLedger) Contains(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[token]
	return ok
}

// All returns the consumed tokens in submission order.
func (l *TokenLedger) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of consumed tokens.
func (l *TokenLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
