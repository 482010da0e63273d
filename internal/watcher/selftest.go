package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/helioforge/fswatcher/internal/utils"
)

const (
	selfTestTimeout  = 60 * time.Second
	selfTestInterval = 500 * time.Millisecond
)

// SelfTest verifies end to end permissions by pushing a throwaway probe file
// through the real pipeline and polling the store for the result. Runs
// standalone, not alongside Run.
func (w *Watcher) SelfTest(ctx context.Context) error {
	if err := w.client.CheckBucket(ctx); err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()

	w.uploads.Start(ctx)
	w.deletes.Start(ctx)
	defer w.uploads.Stop()
	defer w.deletes.Stop()

	name := fmt.Sprintf("selftest-%s.txt", uuid.NewString())
	path := filepath.Join(w.cfg.WatchDir, name)
	if err := os.WriteFile(path, []byte("fswatcher self test probe\n"), 0o644); err != nil {
		return fmt.Errorf("write probe file: %w", err)
	}
	defer func() {
		if utils.FileExists(path) {
			os.Remove(path)
		}
	}()

	key := w.normalizer.RelativeKey(path)
	w.ingest(ctx, RawEvent{Kind: RawCreated, Path: path})
	if err := w.waitRemote(ctx, key, true); err != nil {
		return fmt.Errorf("upload probe: %w", err)
	}
	slog.Info("upload probe succeeded", "key", key)

	if !w.cfg.AllowDelete {
		// deletes are disabled, remove the probe object directly
		if err := w.client.Delete(ctx, key); err != nil {
			slog.Warn("probe object cleanup failed", "key", key, "error", err)
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove probe file: %w", err)
	}
	w.ingest(ctx, RawEvent{Kind: RawDeleted, Path: path})
	if err := w.waitRemote(ctx, key, false); err != nil {
		return fmt.Errorf("delete probe: %w", err)
	}
	slog.Info("delete probe succeeded", "key", key)
	return nil
}

func (w *Watcher) waitRemote(ctx context.Context, key string, want bool) error {
	ticker := time.NewTicker(selfTestInterval)
	defer ticker.Stop()

	for {
		ok, err := w.client.Exists(ctx, key)
		if err == nil && ok == want {
			return nil
		}
		if err != nil {
			slog.Debug("probe check failed", "key", key, "error", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %q present=%v: %w", key, want, ctx.Err())
		case <-ticker.C:
		}
	}
}
