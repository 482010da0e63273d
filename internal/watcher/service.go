package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/helioforge/fswatcher/internal/audit"
	"github.com/helioforge/fswatcher/internal/blob"
	"github.com/helioforge/fswatcher/internal/notifier"
	"github.com/helioforge/fswatcher/internal/utils"
)

var ErrAlreadyRunning = errors.New("another instance is watching this directory")

// Watcher owns the full pipeline: event source, normalizer, dedup tracker,
// dispatchers and the reconciler. One Watcher mirrors one directory tree
// into one bucket/prefix.
type Watcher struct {
	cfg         *Config
	client      blob.Client
	normalizer  *Normalizer
	tracker     *Tracker
	deadLetters *DeadLetterQueue
	uploads     *UploadDispatcher
	deletes     *DeleteDispatcher
	reconciler  *Reconciler
	sinks       *sinks
	lock        *flock.Flock
}

func New(cfg *Config, client blob.Client, ntf notifier.Notifier, recorder audit.Recorder) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if ntf == nil {
		ntf = notifier.Noop{}
	}
	if recorder == nil {
		recorder = audit.SlogRecorder{}
	}

	deadLetters, err := NewDeadLetterQueue(cfg.DeadLetterLimit)
	if err != nil {
		return nil, fmt.Errorf("dead letter queue: %w", err)
	}

	snk := &sinks{
		notifier:    ntf,
		recorder:    recorder,
		channel:     cfg.Channel,
		sourceLabel: cfg.sourceLabel(),
	}

	w := &Watcher{
		cfg:         cfg,
		client:      client,
		normalizer:  NewNormalizer(cfg.WatchDir, cfg.BucketSpec, cfg.Exclusions),
		tracker:     NewTracker(),
		deadLetters: deadLetters,
		sinks:       snk,
	}
	w.uploads = NewUploadDispatcher(client, w.tracker, deadLetters, snk, cfg.Concurrency)
	w.deletes = NewDeleteDispatcher(client, w.tracker, snk, cfg.AllowDelete)
	w.reconciler = NewReconciler(cfg.WatchDir, client, w.normalizer, w.ingest, cfg.WalkShards)
	return w, nil
}

func (w *Watcher) DeadLetters() *DeadLetterQueue { return w.deadLetters }

// Run watches until ctx is cancelled, then drains in-flight operations
// within the configured grace period.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.acquireLock(); err != nil {
		return err
	}
	defer w.releaseLock()

	if err := w.client.CheckBucket(ctx); err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}

	source, err := w.openSource(ctx)
	if err != nil {
		return err
	}
	defer source.Stop()

	// Workers outlive ctx so in-flight operations can finish during the
	// drain grace period. The drain cancels them on timeout.
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	w.uploads.Start(workerCtx)
	w.deletes.Start(workerCtx)
	slog.Info("watching", "dir", w.cfg.WatchDir, "bucket", w.cfg.BucketSpec, "concurrency", w.uploads.concurrency, "allowDelete", w.cfg.AllowDelete)

	for {
		select {
		case <-ctx.Done():
			w.drain(cancelWorkers)
			return nil
		case raw, ok := <-source.Events():
			if !ok {
				w.drain(cancelWorkers)
				return nil
			}
			w.ingest(workerCtx, raw)
		}
	}
}

// Backtrack runs one reconciliation pass using the configured cutoff and
// drift-check setting. Safe to call while Run is live; the shared tracker
// prevents double-processing.
func (w *Watcher) Backtrack(ctx context.Context) (int, error) {
	return w.reconciler.Run(ctx, ReconcileOptions{
		Since:       w.cfg.BacktrackSince,
		CheckRemote: w.cfg.CheckRemote,
	})
}

// Reconcile runs one standalone reconciliation pass with its own dispatcher
// lifecycle, for one-shot invocations without a live watch.
func (w *Watcher) Reconcile(ctx context.Context) (int, error) {
	if err := w.client.CheckBucket(ctx); err != nil {
		return 0, fmt.Errorf("bucket check: %w", err)
	}

	w.uploads.Start(ctx)
	w.deletes.Start(ctx)

	dispatched, err := w.Backtrack(ctx)

	w.uploads.Stop()
	w.deletes.Stop()
	return dispatched, err
}

// ingest runs the synchronous part of the pipeline. It never touches the
// network: normalize plus the dedup check, then a queue handoff.
func (w *Watcher) ingest(ctx context.Context, raw RawEvent) {
	ev := w.normalizer.Normalize(raw)
	if ev == nil {
		return
	}
	if w.tracker.TryAccept(ev) == Duplicate {
		slog.Debug("operation already in flight, dropped", "key", ev.RelKey, "action", ev.Action)
		return
	}
	if ev.Action == ActionDelete {
		w.deletes.Submit(ctx, ev)
	} else {
		w.uploads.Submit(ctx, ev)
	}
}

// openSource prefers the native notification mechanism and falls back to
// polling when the OS refuses the watch (typically inotify limits).
func (w *Watcher) openSource(ctx context.Context) (EventSource, error) {
	native := newNotifySource(w.cfg.WatchDir)
	err := native.Start(ctx)
	if err == nil {
		return native, nil
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		return nil, fmt.Errorf("start watch: %w", err)
	}

	slog.Warn("native watch unavailable, falling back to polling", "error", err, "interval", w.cfg.pollInterval())
	poller := newPollingSource(w.cfg.WatchDir, w.cfg.pollInterval())
	if err := poller.Start(ctx); err != nil {
		return nil, fmt.Errorf("start polling watch: %w", err)
	}
	return poller, nil
}

// drain gives in-flight operations a bounded grace period. Uploads and
// deletes are idempotent, so abandoning stragglers is acceptable.
func (w *Watcher) drain(cancelWorkers context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		w.uploads.Stop()
		w.deletes.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("drained in-flight operations")
	case <-time.After(w.cfg.drainTimeout()):
		slog.Warn("drain timed out, abandoning in-flight operations", "inflight", w.tracker.Len())
		cancelWorkers()
	}

	if n := w.deadLetters.Len(); n > 0 {
		slog.Warn("dead letter queue not empty at shutdown", "entries", n)
		for _, entry := range w.deadLetters.Snapshot() {
			slog.Warn("dead letter", "key", entry.Key, "bucket", entry.Bucket, "failures", entry.FailureCount)
		}
	}
}

func (w *Watcher) acquireLock() error {
	path := filepath.Join(w.cfg.WatchDir, ".fswatcher", "instance.lock")
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("prepare lock file: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	w.lock = lock
	return nil
}

func (w *Watcher) releaseLock() {
	if w.lock == nil {
		return
	}
	if err := w.lock.Unlock(); err != nil {
		slog.Warn("release lock failed", "error", err)
	}
}
