package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize        = 256
	defaultDebounceTimeout = 50 * time.Millisecond
)

var ErrSourceUnavailable = errors.New("event source unavailable")

// EventSource delivers RawEvents from the watch root on a single intake
// channel. Implementations must never block the caller on network I/O.
type EventSource interface {
	Start(ctx context.Context) error
	Events() <-chan RawEvent
	Stop()
}

// notifySource is the native OS notification source. Write bursts are
// debounced per path before forwarding, the way inotify floods WRITE events
// while a file is still being written.
type notifySource struct {
	watchDir  string
	rawEvents chan notify.EventInfo
	events    chan RawEvent
	done      chan struct{}
	wg        sync.WaitGroup

	debounceMu      sync.Mutex
	pendingEvents   map[string]RawEvent
	eventTimers     map[string]*time.Timer
	debounceTimeout time.Duration
}

func newNotifySource(watchDir string) *notifySource {
	return &notifySource{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pendingEvents:   make(map[string]RawEvent),
		eventTimers:     make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

func (s *notifySource) Start(ctx context.Context) error {
	s.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	s.events = make(chan RawEvent, eventBufferSize)

	recursivePath := s.watchDir + "/..."
	if err := notify.Watch(recursivePath, s.rawEvents,
		notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return errors.Join(ErrSourceUnavailable, err)
	}

	s.wg.Add(1)
	go s.forwardEvents(ctx)

	slog.Info("native event source started", "dir", s.watchDir)
	return nil
}

func (s *notifySource) Stop() {
	close(s.done)
	if s.rawEvents != nil {
		notify.Stop(s.rawEvents)
	}
	s.wg.Wait()
}

func (s *notifySource) Events() <-chan RawEvent {
	return s.events
}

func (s *notifySource) forwardEvents(ctx context.Context) {
	defer func() {
		// cancel pending timers and flush what they held, clearing both
		// maps so a timer callback already fired and blocked on the mutex
		// finds nothing to send after the channel closes
		s.debounceMu.Lock()
		for path, timer := range s.eventTimers {
			timer.Stop()
			if event, exists := s.pendingEvents[path]; exists {
				select {
				case s.events <- event:
				default:
					slog.Warn("event channel full on exit, dropping", "path", path)
				}
			}
			delete(s.pendingEvents, path)
			delete(s.eventTimers, path)
		}
		s.debounceMu.Unlock()

		s.wg.Done()
		close(s.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.rawEvents:
			if !ok {
				return
			}
			s.debounceEvent(s.toRawEvent(event))
		}
	}
}

// toRawEvent maps a kernel notification to the RawEvent contract. The notify
// library reports the old path of a rename as Rename and the new path as
// Create, so renames surface here as a delete plus a create; RawMoved events
// only come from reconciliation.
func (s *notifySource) toRawEvent(event notify.EventInfo) RawEvent {
	raw := RawEvent{Path: event.Path()}

	switch event.Event() {
	case notify.Create:
		raw.Kind = RawCreated
	case notify.Write:
		raw.Kind = RawModified
	case notify.Remove, notify.Rename:
		raw.Kind = RawDeleted
	default:
		raw.Kind = RawClosed
	}

	if raw.Kind != RawDeleted {
		if info, err := os.Stat(raw.Path); err == nil {
			raw.IsDir = info.IsDir()
		}
	}

	return raw
}

func (s *notifySource) debounceEvent(raw RawEvent) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if timer, exists := s.eventTimers[raw.Path]; exists {
		timer.Stop()
		delete(s.eventTimers, raw.Path)
	}

	s.pendingEvents[raw.Path] = raw

	path := raw.Path
	s.eventTimers[path] = time.AfterFunc(s.debounceTimeout, func() {
		s.flushEvent(path)
	})
}

func (s *notifySource) flushEvent(path string) {
	s.debounceMu.Lock()
	event, exists := s.pendingEvents[path]
	if !exists {
		s.debounceMu.Unlock()
		return
	}
	delete(s.pendingEvents, path)
	delete(s.eventTimers, path)
	s.debounceMu.Unlock()

	select {
	case s.events <- event:
	default:
		slog.Warn("event dropped", "reason", "channel full", "path", path)
	}
}

var _ EventSource = (*notifySource)(nil)
