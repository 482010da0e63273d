package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/helioforge/fswatcher/internal/audit"
	"github.com/helioforge/fswatcher/internal/blob"
	"github.com/helioforge/fswatcher/internal/notifier"
	"github.com/helioforge/fswatcher/internal/utils"
	"github.com/helioforge/fswatcher/internal/watcher"
)

// app bundles the wired components so subcommands share one construction
// path. Close releases the audit store.
type app struct {
	watcher  *watcher.Watcher
	recorder audit.Recorder
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		slog.Warn("audit recorder close failed", "error", err)
	}
}

func buildApp(ctx context.Context) (*app, error) {
	watchDir, err := utils.ResolvePath(viper.GetString("dir"))
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir: %w", err)
	}

	cfg := &watcher.Config{
		WatchDir:        watchDir,
		BucketSpec:      viper.GetString("bucket"),
		Concurrency:     viper.GetInt("concurrency"),
		AllowDelete:     viper.GetBool("allow_delete"),
		Exclusions:      viper.GetStringSlice("exclude"),
		CheckRemote:     viper.GetBool("check_remote"),
		WalkShards:      viper.GetInt("walk_shards"),
		DeadLetterLimit: viper.GetInt("dead_letter_limit"),
		SourceLabel:     viper.GetString("source_label"),
		Channel:         viper.GetString("channel"),
		PollInterval:    viper.GetDuration("poll_interval"),
		DrainTimeout:    viper.GetDuration("drain_timeout"),
	}
	if since := viper.GetString("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return nil, fmt.Errorf("parse --since %q (want YYYY-MM-DD): %w", since, err)
		}
		cfg.BacktrackSince = t
	}

	spec, err := blob.ParseBucketSpec(cfg.BucketSpec)
	if err != nil {
		return nil, fmt.Errorf("bucket spec: %w", err)
	}
	client, err := blob.NewS3Client(ctx, &blob.S3Config{
		BucketSpec: spec,
		Region:     viper.GetString("region"),
		Profile:    viper.GetString("profile"),
		AccessKey:  viper.GetString("access_key"),
		SecretKey:  viper.GetString("secret_key"),
		Endpoint:   viper.GetString("endpoint"),
	})
	if err != nil {
		return nil, fmt.Errorf("store client: %w", err)
	}

	var ntf notifier.Notifier = notifier.Noop{}
	if url := viper.GetString("webhook_url"); url != "" {
		ntf = notifier.NewWebhookNotifier(url)
	}

	var recorder audit.Recorder = audit.SlogRecorder{}
	if path := viper.GetString("audit_db"); path != "" {
		sqliteRec, err := audit.NewSqliteRecorder(path)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		recorder = sqliteRec
	}

	w, err := watcher.New(cfg, client, ntf, recorder)
	if err != nil {
		recorder.Close()
		return nil, err
	}
	return &app{watcher: w, recorder: recorder}, nil
}
