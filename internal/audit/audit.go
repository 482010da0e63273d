package audit

import (
	"context"
	"log/slog"
	"time"
)

// Record is one audit row: what happened to which key, and where it went.
// SourceBucket is the watch host label, DestBucket is empty for deletes.
type Record struct {
	ID           string `db:"id"`
	Action       string `db:"action"`
	SourceKey    string `db:"source_key"`
	DestKey      string `db:"dest_key"`
	SourceBucket string `db:"source_bucket"`
	DestBucket   string `db:"dest_bucket"`
	TimeMillis   int64  `db:"ts_millis"`
}

// Recorder persists audit records. Recording is best-effort: callers log
// failures and continue, a broken audit sink never blocks dispatch.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
	Close() error
}

// NewRecord stamps a record with the current wall clock in milliseconds.
func NewRecord(action, sourceKey, destKey, sourceBucket, destBucket string) *Record {
	return &Record{
		Action:       action,
		SourceKey:    sourceKey,
		DestKey:      destKey,
		SourceBucket: sourceBucket,
		DestBucket:   destBucket,
		TimeMillis:   time.Now().UnixMilli(),
	}
}

// SlogRecorder writes audit records to the process log. Used when no audit
// database is configured.
type SlogRecorder struct{}

func (SlogRecorder) Record(ctx context.Context, rec *Record) error {
	slog.Info("audit",
		"action", rec.Action,
		"sourceKey", rec.SourceKey,
		"destKey", rec.DestKey,
		"sourceBucket", rec.SourceBucket,
		"destBucket", rec.DestBucket,
		"ts", rec.TimeMillis,
	)
	return nil
}

func (SlogRecorder) Close() error { return nil }

var _ Recorder = SlogRecorder{}
