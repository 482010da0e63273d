package watcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/helioforge/fswatcher/internal/blob"
)

// DeleteDispatcher handles DELETE events on a single worker. Remote deletes
// only happen when allowDelete is set; a disabled delete is still audited so
// the log reflects every local removal. Failed deletes are logged and dropped,
// they never enter the dead-letter queue.
type DeleteDispatcher struct {
	client      blob.Client
	tracker     *Tracker
	sinks       *sinks
	allowDelete bool
	jobs        chan *NormalizedEvent
	wg          sync.WaitGroup
}

func NewDeleteDispatcher(client blob.Client, tracker *Tracker, sinks *sinks, allowDelete bool) *DeleteDispatcher {
	return &DeleteDispatcher{
		client:      client,
		tracker:     tracker,
		sinks:       sinks,
		allowDelete: allowDelete,
		jobs:        make(chan *NormalizedEvent, eventBufferSize),
	}
}

func (d *DeleteDispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-d.jobs:
				if !ok {
					return
				}
				d.process(ctx, ev)
			}
		}
	}()
}

func (d *DeleteDispatcher) Submit(ctx context.Context, ev *NormalizedEvent) {
	select {
	case d.jobs <- ev:
	case <-ctx.Done():
		d.tracker.Release(ev)
	}
}

func (d *DeleteDispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

func (d *DeleteDispatcher) process(ctx context.Context, ev *NormalizedEvent) {
	defer d.tracker.Release(ev)

	slog.Info("handling event", "event", ev.String(), "key", ev.RelKey)
	d.sinks.notifyEvent(ctx, ev)

	if !d.allowDelete {
		slog.Info("remote delete disabled, skipping", "key", ev.RelKey, "bucket", ev.Bucket)
		d.sinks.record(ctx, ev)
		return
	}

	if err := d.client.Delete(ctx, ev.RelKey); err != nil {
		slog.Error("delete failed", "key", ev.RelKey, "bucket", ev.Bucket, "error", err)
		d.sinks.notifyDeleteFailed(ctx, ev)
		d.sinks.record(ctx, ev)
		return
	}

	slog.Info("deleted", "key", ev.RelKey, "bucket", ev.Bucket)
	d.sinks.record(ctx, ev)
}
