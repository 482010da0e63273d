package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioforge/fswatcher/internal/notifier"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		WatchDir:    t.TempDir(),
		BucketSpec:  "bucket/prefix",
		Concurrency: 2,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing dir", func(c *Config) { c.WatchDir = "" }, true},
		{"nonexistent dir", func(c *Config) { c.WatchDir = "/does/not/exist" }, true},
		{"empty bucket", func(c *Config) { c.BucketSpec = "" }, true},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateUnwritableDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Chmod(cfg.WatchDir, 0o555))
	t.Cleanup(func() { os.Chmod(cfg.WatchDir, 0o755) })

	assert.Error(t, cfg.Validate())
}

func TestWatcherIngestDeduplicates(t *testing.T) {
	cfg := testConfig(t)
	client := newFakeBlobClient()
	w, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)

	path := filepath.Join(cfg.WatchDir, "a.txt")
	raw := RawEvent{Kind: RawCreated, Path: path}

	// workers not started, so the first event stays in flight
	w.ingest(context.Background(), raw)
	w.ingest(context.Background(), raw)
	assert.Equal(t, 1, w.tracker.Len())
}

func TestWatcherIngestDropsExcluded(t *testing.T) {
	cfg := testConfig(t)
	client := newFakeBlobClient()
	w, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)

	w.ingest(context.Background(), RawEvent{Kind: RawCreated, Path: filepath.Join(cfg.WatchDir, "fswatcher.log")})
	w.ingest(context.Background(), RawEvent{Kind: RawCreated, Path: "/outside/a.txt"})
	assert.Equal(t, 0, w.tracker.Len())
}

func TestWatcherSelfTest(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowDelete = true
	client := newFakeBlobClient()
	w, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)

	require.NoError(t, w.SelfTest(context.Background()))

	// probe cleaned up on both sides
	assert.Equal(t, 1, client.putCount())
	assert.Equal(t, 1, client.deleteCount())
	entries, err := os.ReadDir(cfg.WatchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatcherRunMirrorsLiveEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowDelete = true
	cfg.DrainTimeout = 5 * time.Second
	client := newFakeBlobClient()
	w, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watch time to come up
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(cfg.WatchDir, "live.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	require.Eventually(t, func() bool { return client.has("live.txt") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return !client.has("live.txt") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not shut down")
	}
}

func TestWatcherSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	client := newFakeBlobClient()

	first, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)
	require.NoError(t, first.acquireLock())
	defer first.releaseLock()

	second, err := New(cfg, client, notifier.Noop{}, &memRecorder{})
	require.NoError(t, err)
	assert.ErrorIs(t, second.acquireLock(), ErrAlreadyRunning)
}
