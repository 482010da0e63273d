package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SqliteRecorder {
	t.Helper()
	rec, err := NewSqliteRecorder(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestSqliteRecorderRoundTrip(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	created := NewRecord("CREATE", "/data/a.txt", "a.txt", "host-1", "bucket")
	created.TimeMillis = 1000
	deleted := NewRecord("DELETE", "/data/a.txt", "a.txt", "host-1", "")
	deleted.TimeMillis = 2000
	require.NoError(t, rec.Record(ctx, created))
	require.NoError(t, rec.Record(ctx, deleted))

	records, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, "DELETE", records[0].Action)
	assert.Empty(t, records[0].DestBucket)
	assert.Equal(t, "CREATE", records[1].Action)
	assert.Equal(t, "bucket", records[1].DestBucket)

	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.Positive(t, r.TimeMillis)
		assert.Equal(t, "a.txt", r.DestKey)
		assert.Equal(t, "host-1", r.SourceBucket)
	}
}

func TestSqliteRecorderRecentLimit(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, rec.Record(ctx, NewRecord("UPDATE", "/data/a.txt", "a.txt", "host-1", "bucket")))
	}

	records, err := rec.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
