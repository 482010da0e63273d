package watcher

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func uploadEvent(root, path string, action Action) *NormalizedEvent {
	rel, _ := filepath.Rel(root, path)
	return &NormalizedEvent{
		Action:     action,
		WatchRoot:  root,
		SourcePath: path,
		RelKey:     filepath.ToSlash(rel),
		Bucket:     "bucket",
	}
}

func newTestUploader(t *testing.T, client *fakeBlobClient, rec *memRecorder) (*UploadDispatcher, *Tracker, *DeadLetterQueue) {
	t.Helper()
	tracker := NewTracker()
	dlq, err := NewDeadLetterQueue(16)
	require.NoError(t, err)
	return NewUploadDispatcher(client, tracker, dlq, testSinks(rec), 2), tracker, dlq
}

func TestUploadSuccess(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "a.txt", "hello")

	client := newFakeBlobClient()
	rec := &memRecorder{}
	d, tracker, dlq := newTestUploader(t, client, rec)

	ev := uploadEvent(root, path, ActionCreate)
	require.Equal(t, Accepted, tracker.TryAccept(ev))

	d.Start(context.Background())
	d.Submit(context.Background(), ev)
	d.Stop()

	assert.True(t, client.has("a.txt"))
	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, 0, dlq.Len())

	require.Equal(t, 1, rec.count())
	record := rec.last()
	assert.Equal(t, string(ActionCreate), record.Action)
	assert.Equal(t, path, record.SourceKey)
	assert.Equal(t, "a.txt", record.DestKey)
	assert.Equal(t, "test-host", record.SourceBucket)
	assert.Equal(t, "bucket", record.DestBucket)
}

func TestUploadSetsStatTags(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "a.txt", "hello")

	client := newFakeBlobClient()
	d, tracker, _ := newTestUploader(t, client, &memRecorder{})

	ev := uploadEvent(root, path, ActionUpdate)
	tracker.TryAccept(ev)

	d.Start(context.Background())
	d.Submit(context.Background(), ev)
	d.Stop()

	client.mu.Lock()
	tagging := client.objects["a.txt"]
	client.mu.Unlock()

	values, err := url.ParseQuery(tagging)
	require.NoError(t, err)
	assert.Equal(t, "5", values.Get(tagSize))
	assert.NotEmpty(t, values.Get(tagMtime))
}

func TestUploadTransientFailureDeadLetters(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "a.txt", "hello")

	client := newFakeBlobClient()
	client.putErr = errors.New("connection reset")
	rec := &memRecorder{}
	d, tracker, dlq := newTestUploader(t, client, rec)

	ev := uploadEvent(root, path, ActionCreate)
	tracker.TryAccept(ev)

	d.Start(context.Background())
	d.Submit(context.Background(), ev)
	d.Stop()

	assert.Equal(t, 0, tracker.Len())
	require.Equal(t, 1, dlq.Len())
	entry, ok := dlq.Get("a.txt")
	require.True(t, ok)
	assert.Equal(t, path, entry.SourcePath)
	assert.Equal(t, "bucket", entry.Bucket)
	assert.Equal(t, 1, entry.FailureCount)
	assert.Equal(t, 0, rec.count())
}

func TestUploadPermanentFailureSkipsDeadLetter(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "a.txt", "hello")

	client := newFakeBlobClient()
	client.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	d, tracker, dlq := newTestUploader(t, client, &memRecorder{})

	ev := uploadEvent(root, path, ActionCreate)
	tracker.TryAccept(ev)

	d.Start(context.Background())
	d.Submit(context.Background(), ev)
	d.Stop()

	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, 0, dlq.Len())
}

func TestUploadMissingFileReleasesWithoutUpload(t *testing.T) {
	root := t.TempDir()

	client := newFakeBlobClient()
	d, tracker, dlq := newTestUploader(t, client, &memRecorder{})

	ev := uploadEvent(root, filepath.Join(root, "vanished.txt"), ActionCreate)
	tracker.TryAccept(ev)

	d.Start(context.Background())
	d.Submit(context.Background(), ev)
	d.Stop()

	assert.Equal(t, 0, client.putCount())
	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, 0, dlq.Len())
}

func TestUploadRepeatedFailureKeepsOneEntry(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "a.txt", "hello")

	client := newFakeBlobClient()
	client.putErr = errors.New("timeout")
	d, tracker, dlq := newTestUploader(t, client, &memRecorder{})

	d.Start(context.Background())
	for range 3 {
		ev := uploadEvent(root, path, ActionUpdate)
		require.Equal(t, Accepted, tracker.TryAccept(ev))
		d.Submit(context.Background(), ev)
		// wait for this attempt to release before re-accepting
		require.Eventually(t, func() bool { return tracker.Len() == 0 }, time.Second, 5*time.Millisecond)
	}
	d.Stop()

	require.Equal(t, 1, dlq.Len())
	entry, ok := dlq.Get("a.txt")
	require.True(t, ok)
	assert.Equal(t, 3, entry.FailureCount)
}
