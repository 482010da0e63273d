package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

const DefaultPollInterval = 10 * time.Second

type pollEntry struct {
	modTime time.Time
	size    int64
}

// pollingSource is the fallback event source used when the native
// notification mechanism cannot be established (e.g. inotify watch limits).
// It scans the tree on an interval and diffs modification times and sizes
// against the previous snapshot, emitting the same RawEvent contract as the
// native source. The first scan only primes the snapshot; preexisting drift
// is reconciliation's job.
type pollingSource struct {
	watchDir string
	interval time.Duration
	events   chan RawEvent
	done     chan struct{}
	wg       sync.WaitGroup
	snapshot map[string]pollEntry
}

func newPollingSource(watchDir string, interval time.Duration) *pollingSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &pollingSource{
		watchDir: watchDir,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *pollingSource) Start(ctx context.Context) error {
	s.events = make(chan RawEvent, eventBufferSize)
	s.snapshot = s.scan()

	s.wg.Add(1)
	go s.pollLoop(ctx)

	slog.Info("polling event source started", "dir", s.watchDir, "interval", s.interval)
	return nil
}

func (s *pollingSource) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *pollingSource) Events() <-chan RawEvent {
	return s.events
}

func (s *pollingSource) pollLoop(ctx context.Context) {
	defer func() {
		s.wg.Done()
		close(s.events)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.diffAndEmit()
		}
	}
}

func (s *pollingSource) scan() map[string]pollEntry {
	snapshot := make(map[string]pollEntry)

	err := filepath.WalkDir(s.watchDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("poll scan", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snapshot[path] = pollEntry{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		slog.Warn("poll scan failed", "dir", s.watchDir, "error", err)
	}

	return snapshot
}

func (s *pollingSource) diffAndEmit() {
	current := s.scan()

	for path, entry := range current {
		prev, existed := s.snapshot[path]
		switch {
		case !existed:
			s.emit(RawEvent{Kind: RawCreated, Path: path})
		case !entry.modTime.Equal(prev.modTime) || entry.size != prev.size:
			s.emit(RawEvent{Kind: RawModified, Path: path})
		}
	}

	for path := range s.snapshot {
		if _, exists := current[path]; !exists {
			s.emit(RawEvent{Kind: RawDeleted, Path: path})
		}
	}

	s.snapshot = current
}

func (s *pollingSource) emit(raw RawEvent) {
	select {
	case s.events <- raw:
	default:
		slog.Warn("event dropped", "reason", "channel full", "path", raw.Path)
	}
}

var _ EventSource = (*pollingSource)(nil)
