package ledger

import "sync"

// Executor serializes access to a Ledger so that concurrent callers observe
// one global order of operations.
type Executor struct {
	mu sync.Mutex
	l  *Ledger
}

// NewExecutor wraps l.
func NewExecutor(l *Ledger) *Executor {
	return &Executor{l: l}
}

// Do runs fn with exclusive access to the ledger.
func (e *Executor) Do(fn func(l *Ledger) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.l)
}

// View runs fn with exclusive access for reading.
func (e *Executor) View(fn func(l *Ledger)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.l)
}
