package watcher

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultDeadLetterLimit = 1024

// DeadLetterEntry records one permanently-failed upload: the store client's
// retry budget for this key was exhausted. One entry per key, not per retry.
type DeadLetterEntry struct {
	SourcePath   string
	Bucket       string
	Key          string
	Tags         string
	FailureCount int
	LastAttempt  time.Time
}

// DeadLetterQueue holds failed uploads for later inspection or replay. It is
// bounded: beyond the limit the oldest entries are evicted, so a persistent
// outage cannot grow memory without bound.
type DeadLetterQueue struct {
	entries *lru.Cache[string, *DeadLetterEntry]
}

func NewDeadLetterQueue(limit int) (*DeadLetterQueue, error) {
	if limit <= 0 {
		limit = DefaultDeadLetterLimit
	}
	entries, err := lru.New[string, *DeadLetterEntry](limit)
	if err != nil {
		return nil, err
	}
	return &DeadLetterQueue{entries: entries}, nil
}

// Put records a failed upload, overwriting any stale entry for the same key
// and carrying its failure count forward.
func (q *DeadLetterQueue) Put(entry *DeadLetterEntry) {
	if prev, ok := q.entries.Get(entry.Key); ok {
		entry.FailureCount = prev.FailureCount + 1
	} else if entry.FailureCount == 0 {
		entry.FailureCount = 1
	}
	if entry.LastAttempt.IsZero() {
		entry.LastAttempt = time.Now()
	}
	q.entries.Add(entry.Key, entry)
}

func (q *DeadLetterQueue) Get(key string) (*DeadLetterEntry, bool) {
	return q.entries.Get(key)
}

func (q *DeadLetterQueue) Remove(key string) {
	q.entries.Remove(key)
}

func (q *DeadLetterQueue) Len() int {
	return q.entries.Len()
}

// Snapshot returns the current entries, oldest first.
func (q *DeadLetterQueue) Snapshot() []*DeadLetterEntry {
	keys := q.entries.Keys()
	entries := make([]*DeadLetterEntry, 0, len(keys))
	for _, key := range keys {
		if entry, ok := q.entries.Peek(key); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Drain removes and returns all entries, for replay.
func (q *DeadLetterQueue) Drain() []*DeadLetterEntry {
	entries := q.Snapshot()
	q.entries.Purge()
	return entries
}
