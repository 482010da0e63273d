package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helioforge/fswatcher/internal/audit"
	"github.com/helioforge/fswatcher/internal/notifier"
)

var actionDescriptions = map[Action]string{
	ActionCreate: "New file in watch directory",
	ActionUpdate: "File modified in watch directory",
	ActionPut:    "File moved in watch directory",
	ActionDelete: "File deleted from watch directory",
}

// sinks bundles the best-effort collaborators shared by the dispatchers.
// Notification and audit failures are logged and swallowed, never escalated.
type sinks struct {
	notifier    notifier.Notifier
	recorder    audit.Recorder
	channel     string
	sourceLabel string
}

func (s *sinks) notify(ctx context.Context, message string, severity notifier.Severity) {
	if err := s.notifier.Notify(ctx, s.channel, message, severity); err != nil {
		slog.Warn("notification failed", "error", err)
	}
}

func (s *sinks) notifyEvent(ctx context.Context, ev *NormalizedEvent) {
	description, ok := actionDescriptions[ev.Action]
	if !ok {
		description = "Unknown file event in watch directory"
	}
	s.notify(ctx, fmt.Sprintf("fswatcher: %s - (%s)", description, ev.RelKey), notifier.SeverityInfo)
}

func (s *sinks) notifyUploaded(ctx context.Context, ev *NormalizedEvent) {
	s.notify(ctx, fmt.Sprintf("fswatcher: File successfully uploaded to %s - (%s)", ev.Bucket, ev.RelKey), notifier.SeverityInfo)
}

func (s *sinks) notifyUploadFailed(ctx context.Context, ev *NormalizedEvent) {
	s.notify(ctx, fmt.Sprintf("fswatcher: Error uploading file to %s - (%s)", ev.Bucket, ev.RelKey), notifier.SeverityError)
}

func (s *sinks) notifyDeleteFailed(ctx context.Context, ev *NormalizedEvent) {
	s.notify(ctx, fmt.Sprintf("fswatcher: Error deleting file from %s - (%s)", ev.Bucket, ev.RelKey), notifier.SeverityError)
}

// record writes one audit row for the event. destBucket is empty for
// deletes, mirroring that nothing was written remotely.
func (s *sinks) record(ctx context.Context, ev *NormalizedEvent) {
	destBucket := ev.Bucket
	if ev.Action == ActionDelete {
		destBucket = ""
	}
	rec := audit.NewRecord(string(ev.Action), ev.LocalPath(), ev.RelKey, s.sourceLabel, destBucket)
	if err := s.recorder.Record(ctx, rec); err != nil {
		slog.Warn("audit record failed", "action", ev.Action, "key", ev.RelKey, "error", err)
	}
}
