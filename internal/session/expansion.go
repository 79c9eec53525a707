package session

import "sync"

// Expansion tracks which incident cards are open, keyed by incident number.
// The zero value is ready to use. It is independent of the transcript: every
// card for the same number shares one flag.
type Expansion struct {
	mu   sync.Mutex
	open map[string]bool
}

func NewExpansion() *Expansion {
	return &Expansion{open: map[string]bool{}}
}

// Toggle flips the flag for number and returns the new value. Unknown
// numbers start collapsed, so the first toggle opens them.
func (e *Expansion) Toggle(number string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open == nil {
		e.open = map[string]bool{}
	}
	next := !e.open[number]
	e.open[number] = next
	return next
}

func (e *Expansion) IsExpanded(number string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open[number]
}
