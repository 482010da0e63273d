package watcher

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/helioforge/fswatcher/internal/blob"
)

type ReconcileState int32

const (
	ReconcileIdle ReconcileState = iota
	ReconcileScanning
	ReconcileDiffing
	ReconcileDispatching
)

func (s ReconcileState) String() string {
	switch s {
	case ReconcileIdle:
		return "IDLE"
	case ReconcileScanning:
		return "SCANNING"
	case ReconcileDiffing:
		return "DIFFING"
	case ReconcileDispatching:
		return "DISPATCHING"
	default:
		return "UNKNOWN"
	}
}

var ErrReconcileBusy = errors.New("reconciliation already running")

const DefaultWalkShards = 4

// ReconcileOptions controls one backtrack pass.
type ReconcileOptions struct {
	// Since skips files whose modification time is older than the cutoff.
	// Zero means no cutoff.
	Since time.Time

	// CheckRemote diffs discovered files against the remote key listing and
	// only re-syncs the missing ones. When false every discovered file is
	// re-synced.
	CheckRemote bool
}

// Reconciler resynchronizes the local tree with the remote store after
// missed live events. Discovered files are pushed through the same
// normalize and dedup pipeline as live events, so a path already mid-upload
// is never double-processed.
type Reconciler struct {
	watchRoot  string
	client     blob.Client
	normalizer *Normalizer
	ingest     func(context.Context, RawEvent)
	shards     int
	state      atomic.Int32
}

func NewReconciler(watchRoot string, client blob.Client, normalizer *Normalizer, ingest func(context.Context, RawEvent), shards int) *Reconciler {
	if shards <= 0 {
		shards = DefaultWalkShards
	}
	return &Reconciler{
		watchRoot:  watchRoot,
		client:     client,
		normalizer: normalizer,
		ingest:     ingest,
		shards:     shards,
	}
}

func (r *Reconciler) State() ReconcileState {
	return ReconcileState(r.state.Load())
}

// Run executes one pass and returns the number of synthetic events
// dispatched. Only one pass runs at a time.
func (r *Reconciler) Run(ctx context.Context, opts ReconcileOptions) (int, error) {
	if !r.state.CompareAndSwap(int32(ReconcileIdle), int32(ReconcileScanning)) {
		return 0, ErrReconcileBusy
	}
	defer r.state.Store(int32(ReconcileIdle))

	started := time.Now()
	slog.Info("reconciliation started", "root", r.watchRoot, "since", opts.Since, "checkRemote", opts.CheckRemote)

	files, err := r.scan(ctx, opts.Since)
	if err != nil {
		return 0, fmt.Errorf("scan: %w", err)
	}

	r.state.Store(int32(ReconcileDiffing))
	missing, err := r.diff(ctx, files, opts.CheckRemote)
	if err != nil {
		return 0, fmt.Errorf("diff: %w", err)
	}

	r.state.Store(int32(ReconcileDispatching))
	dispatched := 0
	for _, path := range missing {
		select {
		case <-ctx.Done():
			return dispatched, ctx.Err()
		default:
		}
		r.ingest(ctx, RawEvent{Kind: RawMoved, Path: path, DestPath: path})
		dispatched++
	}

	slog.Info("reconciliation finished",
		"scanned", len(files),
		"dispatched", dispatched,
		"took", time.Since(started).Round(time.Millisecond))
	return dispatched, nil
}

// scan walks the tree and returns relative key to absolute path for every
// regular file passing the cutoff. Directories are collected first and then
// listed by a pool of workers sharded on the directory path hash, so large
// sibling subtrees are read in parallel.
func (r *Reconciler) scan(ctx context.Context, since time.Time) (map[string]string, error) {
	var dirs []string
	err := filepath.WalkDir(r.watchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walk error, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	files := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for shard := range r.shards {
		g.Go(func() error {
			for _, dir := range dirs {
				if dirShard(dir, r.shards) != shard {
					continue
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				batch, err := listFiles(dir, since)
				if err != nil {
					slog.Warn("dir listing failed, skipping", "dir", dir, "error", err)
					continue
				}
				mu.Lock()
				for _, path := range batch {
					if r.normalizer.Excluded(path) {
						continue
					}
					files[r.normalizer.RelativeKey(path)] = path
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// diff returns the local paths that need re-syncing, sorted for
// deterministic dispatch order.
func (r *Reconciler) diff(ctx context.Context, files map[string]string, checkRemote bool) ([]string, error) {
	localKeys := mapset.NewThreadUnsafeSet[string]()
	for key := range files {
		localKeys.Add(key)
	}

	needed := localKeys
	if checkRemote {
		remote, err := r.client.ListKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("list remote keys: %w", err)
		}
		remoteKeys := mapset.NewThreadUnsafeSet(remote...)
		needed = localKeys.Difference(remoteKeys)
		slog.Info("drift computed", "local", localKeys.Cardinality(), "remote", remoteKeys.Cardinality(), "missing", needed.Cardinality())
	}

	paths := make([]string, 0, needed.Cardinality())
	for key := range needed.Iter() {
		paths = append(paths, files[key])
	}
	sort.Strings(paths)
	return paths, nil
}

func listFiles(dir string, since time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !since.IsZero() {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(since) {
				continue
			}
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// dirShard reduces modulo in uint32 space so the result stays in
// [0, shards) even where int is 32 bits.
func dirShard(dir string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(dir))
	return int(h.Sum32() % uint32(shards))
}
