package watcher

import (
	"context"
	"sync"

	"github.com/helioforge/fswatcher/internal/audit"
	"github.com/helioforge/fswatcher/internal/blob"
	"github.com/helioforge/fswatcher/internal/notifier"
)

// fakeBlobClient is an in-memory blob.Client for dispatcher and
// reconciliation tests. Error fields, when set, are returned by the
// corresponding call.
type fakeBlobClient struct {
	mu      sync.Mutex
	objects map[string]string

	putErr    error
	deleteErr error
	listErr   error

	putCalls    []string
	deleteCalls []string
}

var _ blob.Client = (*fakeBlobClient)(nil)

func newFakeBlobClient(keys ...string) *fakeBlobClient {
	objects := make(map[string]string, len(keys))
	for _, k := range keys {
		objects[k] = ""
	}
	return &fakeBlobClient{objects: objects}
}

func (f *fakeBlobClient) PutFile(ctx context.Context, params *blob.PutFileParams) (*blob.PutFileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls = append(f.putCalls, params.Key)
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.objects[params.Key] = params.Tagging
	return &blob.PutFileResult{Key: params.Key, Size: 1}, nil
}

func (f *fakeBlobClient) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobClient) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBlobClient) ListKeys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeBlobClient) CheckBucket(ctx context.Context) error {
	return nil
}

func (f *fakeBlobClient) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.putCalls)
}

func (f *fakeBlobClient) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleteCalls)
}

func (f *fakeBlobClient) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// memRecorder captures audit records for assertions.
type memRecorder struct {
	mu      sync.Mutex
	records []*audit.Record
}

var _ audit.Recorder = (*memRecorder)(nil)

func (m *memRecorder) Record(ctx context.Context, rec *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memRecorder) last() *audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

func testSinks(rec *memRecorder) *sinks {
	return &sinks{
		notifier:    notifier.Noop{},
		recorder:    rec,
		channel:     "test",
		sourceLabel: "test-host",
	}
}
