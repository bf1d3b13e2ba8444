package dedup

import "sync"

// DefaultCapacity bounds the ledger when no capacity is given.
const DefaultCapacity = 1000

// Ledger is a bounded insertion-ordered set of processed transaction
// signatures. When the cap is exceeded the oldest entries are evicted
// first. Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewLedger creates a ledger with the given capacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Add records a signature as processed, evicting the oldest entries once
// the capacity is exceeded. Adding an existing signature is a no-op.
func (l *Ledger) Add(signature string) {
	if signature == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[signature]; ok {
		return
	}

	l.seen[signature] = struct{}{}
	l.order = append(l.order, signature)

	for len(l.order) > l.capacity {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.seen, oldest)
	}
}

// Has reports whether a signature has been processed.
func (l *Ledger) Has(signature string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[signature]
	return ok
}

// Len returns the number of recorded signatures.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
