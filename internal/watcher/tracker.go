package watcher

import (
	"sync"
)

// AcceptResult is the outcome of offering an event to the tracker.
type AcceptResult int

const (
	Accepted AcceptResult = iota
	Duplicate
)

// Tracker is the in-flight deduplication set shared between the intake loop
// and the dispatch workers. It guarantees at most one in-flight operation per
// dedup key: a duplicate TryAccept returns Duplicate without mutating state,
// and Release is idempotent so shutdown races are harmless.
type Tracker struct {
	mu       sync.Mutex
	inflight map[DedupKey]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		inflight: make(map[DedupKey]struct{}),
	}
}

// TryAccept atomically checks and inserts the event's dedup key.
func (t *Tracker) TryAccept(ev *NormalizedEvent) AcceptResult {
	key := ev.DedupKey()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.inflight[key]; exists {
		return Duplicate
	}
	t.inflight[key] = struct{}{}
	return Accepted
}

// Release removes the event's dedup key. Releasing a key that is not present
// is a no-op.
func (t *Tracker) Release(ev *NormalizedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, ev.DedupKey())
}

// Len returns the number of in-flight operations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
