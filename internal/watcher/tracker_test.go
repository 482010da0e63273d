package watcher

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEvent(relKey string, action Action) *NormalizedEvent {
	return &NormalizedEvent{
		Action:     action,
		WatchRoot:  "/data",
		SourcePath: "/data/" + relKey,
		RelKey:     relKey,
		Bucket:     "bucket",
	}
}

func TestTrackerAcceptAndDuplicate(t *testing.T) {
	tr := NewTracker()
	ev := testEvent("a.txt", ActionCreate)

	assert.Equal(t, Accepted, tr.TryAccept(ev))
	assert.Equal(t, Duplicate, tr.TryAccept(ev))
	assert.Equal(t, 1, tr.Len())

	// a different action for the same path is a different operation
	assert.Equal(t, Accepted, tr.TryAccept(testEvent("a.txt", ActionDelete)))
	assert.Equal(t, 2, tr.Len())
}

func TestTrackerReleaseIsIdempotent(t *testing.T) {
	tr := NewTracker()
	ev := testEvent("a.txt", ActionUpdate)

	tr.TryAccept(ev)
	tr.Release(ev)
	tr.Release(ev)
	assert.Equal(t, 0, tr.Len())

	// releasing one event must not leak into another key
	other := testEvent("b.txt", ActionUpdate)
	tr.TryAccept(other)
	tr.Release(ev)
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerAcceptAfterRelease(t *testing.T) {
	tr := NewTracker()
	ev := testEvent("a.txt", ActionUpdate)

	assert.Equal(t, Accepted, tr.TryAccept(ev))
	tr.Release(ev)
	assert.Equal(t, Accepted, tr.TryAccept(ev))
}

func TestTrackerConcurrentSingleWinner(t *testing.T) {
	tr := NewTracker()
	ev := testEvent("a.txt", ActionCreate)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryAccept(ev) == Accepted {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, 1, tr.Len())
}
