package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/helioforge/fswatcher/internal/blob"
)

const DefaultConcurrency = 20

// UploadDispatcher runs CREATE/UPDATE/PUT events through a bounded worker
// pool. Slow store calls never stall intake: events are queued and workers
// drain them at their own pace. Every accepted event is released from the
// tracker exactly once, on success and on permanent failure alike.
type UploadDispatcher struct {
	client      blob.Client
	tracker     *Tracker
	deadLetters *DeadLetterQueue
	sinks       *sinks
	concurrency int
	jobs        chan *NormalizedEvent
	wg          sync.WaitGroup
}

func NewUploadDispatcher(client blob.Client, tracker *Tracker, deadLetters *DeadLetterQueue, sinks *sinks, concurrency int) *UploadDispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &UploadDispatcher{
		client:      client,
		tracker:     tracker,
		deadLetters: deadLetters,
		sinks:       sinks,
		concurrency: concurrency,
		jobs:        make(chan *NormalizedEvent, 4*concurrency),
	}
}

func (d *UploadDispatcher) Start(ctx context.Context) {
	d.wg.Add(d.concurrency)
	for range d.concurrency {
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
}

// Submit queues an accepted event for upload. Blocks only on a full queue,
// never on the network.
func (d *UploadDispatcher) Submit(ctx context.Context, ev *NormalizedEvent) {
	select {
	case d.jobs <- ev:
	case <-ctx.Done():
		d.tracker.Release(ev)
	}
}

// Stop closes the queue and waits for in-flight uploads to finish.
func (d *UploadDispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

func (d *UploadDispatcher) process(ctx context.Context, ev *NormalizedEvent) {
	defer d.tracker.Release(ev)

	slog.Info("handling event", "event", ev.String(), "key", ev.RelKey)
	d.sinks.notifyEvent(ctx, ev)

	localPath := ev.LocalPath()

	// No partial or untagged upload is permitted: a stat failure aborts
	// this file and the event is released so later events aren't stuck.
	tags, err := FileTags(localPath)
	if err != nil {
		slog.Error("tag generation failed, skipping upload", "key", ev.RelKey, "error", err)
		d.sinks.notifyUploadFailed(ctx, ev)
		return
	}

	res, err := d.client.PutFile(ctx, &blob.PutFileParams{
		Key:       ev.RelKey,
		LocalPath: localPath,
		Tagging:   tags,
	})
	if err != nil {
		d.handleUploadError(ctx, ev, localPath, tags, err)
		return
	}

	slog.Info("uploaded", "key", res.Key, "bucket", ev.Bucket, "size", humanize.Bytes(uint64(res.Size)))
	d.sinks.notifyUploaded(ctx, ev)
	d.sinks.record(ctx, ev)
}

func (d *UploadDispatcher) handleUploadError(ctx context.Context, ev *NormalizedEvent, localPath, tags string, err error) {
	switch {
	case blob.IsPermanent(err):
		// terminal store error (auth/permission/bad-request), retrying
		// cannot help
		slog.Error("upload rejected", "key", ev.RelKey, "bucket", ev.Bucket, "error", err)
	case blob.IsTransient(err):
		// the client exhausted its retry budget; record exactly one
		// dead-letter entry for this key
		slog.Error("upload retries exhausted", "key", ev.RelKey, "bucket", ev.Bucket, "error", err)
		d.deadLetters.Put(&DeadLetterEntry{
			SourcePath:  localPath,
			Bucket:      ev.Bucket,
			Key:         ev.RelKey,
			Tags:        tags,
			LastAttempt: time.Now(),
		})
	default:
		slog.Error("upload failed", "key", ev.RelKey, "bucket", ev.Bucket, "error", err)
	}
	d.sinks.notifyUploadFailed(ctx, ev)
}
