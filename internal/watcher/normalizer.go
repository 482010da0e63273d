package watcher

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Paths the watcher itself produces must never round-trip through the
// pipeline, or every upload would trigger another event.
var defaultExclusions = []string{
	"fswatcher.log",
	".fswatcher/",
	"*.partial",
	".DS_Store",
}

// Normalizer converts raw OS notifications into NormalizedEvents, dropping
// noise. Dropping is a normal outcome, not an error: Normalize returns nil
// for directory events, terminal close events, and excluded paths.
type Normalizer struct {
	watchRoot string
	bucket    string
	ignore    *gitignore.GitIgnore
}

func NewNormalizer(watchRoot, bucketSpec string, exclusions []string) *Normalizer {
	lines := make([]string, 0, len(defaultExclusions)+len(exclusions))
	lines = append(lines, defaultExclusions...)
	lines = append(lines, exclusions...)

	return &Normalizer{
		watchRoot: filepath.Clean(watchRoot),
		bucket:    bucketSpec,
		ignore:    gitignore.CompileIgnoreLines(lines...),
	}
}

var rawActions = map[RawKind]Action{
	RawCreated:  ActionCreate,
	RawModified: ActionUpdate,
	RawMoved:    ActionPut,
	RawDeleted:  ActionDelete,
}

func (n *Normalizer) Normalize(raw RawEvent) *NormalizedEvent {
	if raw.IsDir || raw.Kind == RawClosed {
		return nil
	}

	action, ok := rawActions[raw.Kind]
	if !ok {
		return nil
	}

	path := raw.Path
	if raw.DestPath != "" {
		path = raw.DestPath
	}

	relKey := n.RelativeKey(path)
	if relKey == "" {
		return nil
	}

	if n.ignore.MatchesPath(relKey) {
		return nil
	}

	return &NormalizedEvent{
		Action:     action,
		WatchRoot:  n.watchRoot,
		SourcePath: raw.Path,
		DestPath:   raw.DestPath,
		RelKey:     relKey,
		Bucket:     n.bucket,
	}
}

// Excluded reports whether path matches the exclusion rules. Paths outside
// the watch root are excluded.
func (n *Normalizer) Excluded(path string) bool {
	relKey := n.RelativeKey(path)
	if relKey == "" {
		return true
	}
	return n.ignore.MatchesPath(relKey)
}

// RelativeKey strips the watch root prefix and any leading separator,
// returning a slash-separated remote key. Paths outside the root yield "".
func (n *Normalizer) RelativeKey(path string) string {
	path = filepath.Clean(path)
	if path == n.watchRoot {
		return ""
	}

	// require a separator after the root so /database is not treated as
	// being under /data
	prefix := n.watchRoot + string(filepath.Separator)
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	rel := strings.TrimLeft(strings.TrimPrefix(path, n.watchRoot), string(filepath.Separator))
	return filepath.ToSlash(rel)
}
