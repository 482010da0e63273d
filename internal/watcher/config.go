package watcher

import (
	"fmt"
	"time"

	"github.com/helioforge/fswatcher/internal/blob"
	"github.com/helioforge/fswatcher/internal/utils"
)

const (
	DefaultSourceLabel  = "external-server"
	DefaultDrainTimeout = 30 * time.Second
)

// Config carries everything the watcher needs beyond the store client
// itself. Zero values for the tunables fall back to sane defaults in the
// components that consume them.
type Config struct {
	// WatchDir is the local tree to mirror.
	WatchDir string

	// BucketSpec is the remote target, "bucket" or "bucket/prefix".
	BucketSpec string

	// Concurrency bounds the upload worker pool.
	Concurrency int

	// AllowDelete enables remote deletes for local removals.
	AllowDelete bool

	// Exclusions are gitignore style patterns applied on top of the
	// built-in ones.
	Exclusions []string

	// BacktrackSince filters reconciliation to files modified after the
	// cutoff. Zero means no cutoff.
	BacktrackSince time.Time

	// CheckRemote makes reconciliation diff against the remote listing
	// instead of re-syncing every file.
	CheckRemote bool

	// WalkShards bounds the reconciliation walk worker pool.
	WalkShards int

	// DeadLetterLimit caps dead-letter queue entries.
	DeadLetterLimit int

	// SourceLabel names this host in notifications.
	SourceLabel string

	// Channel is the notification channel identifier.
	Channel string

	// PollInterval is the scan period used when the native watch
	// mechanism is unavailable.
	PollInterval time.Duration

	// DrainTimeout bounds the shutdown grace period for in-flight
	// operations.
	DrainTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.WatchDir == "" {
		return fmt.Errorf("watch directory is required")
	}
	if !utils.DirExists(c.WatchDir) {
		return fmt.Errorf("watch directory %q does not exist", c.WatchDir)
	}
	// the instance lock and self-test probe live inside the watch dir
	if !utils.IsWritable(c.WatchDir) {
		return fmt.Errorf("watch directory %q is not writable", c.WatchDir)
	}
	if _, err := blob.ParseBucketSpec(c.BucketSpec); err != nil {
		return fmt.Errorf("bucket spec %q: %w", c.BucketSpec, err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

func (c *Config) sourceLabel() string {
	if c.SourceLabel == "" {
		return DefaultSourceLabel
	}
	return c.SourceLabel
}

func (c *Config) drainTimeout() time.Duration {
	if c.DrainTimeout <= 0 {
		return DefaultDrainTimeout
	}
	return c.DrainTimeout
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}
