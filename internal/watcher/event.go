package watcher

import (
	"fmt"
)

// Action is the canonical operation derived from a filesystem event.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionPut    Action = "PUT"
	ActionDelete Action = "DELETE"
)

// RawKind is the OS-level notification kind as delivered by an EventSource.
type RawKind int

const (
	RawCreated RawKind = iota
	RawModified
	RawMoved
	RawDeleted
	RawClosed
)

func (k RawKind) String() string {
	switch k {
	case RawCreated:
		return "created"
	case RawModified:
		return "modified"
	case RawMoved:
		return "moved"
	case RawDeleted:
		return "deleted"
	case RawClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RawEvent is an ephemeral OS notification before normalization.
type RawEvent struct {
	Kind     RawKind
	Path     string
	DestPath string // set for moves only
	IsDir    bool
}

// NormalizedEvent is the canonical event shape flowing through the pipeline.
// Immutable once constructed.
type NormalizedEvent struct {
	Action     Action
	WatchRoot  string
	SourcePath string
	DestPath   string
	RelKey     string // remote object key, watch root prefix stripped
	Bucket     string // bucket spec string the event targets
}

// DedupKey identifies one logical in-flight operation. Two events with equal
// keys are duplicates; at most one may be in flight at any instant.
type DedupKey struct {
	RelKey   string
	Bucket   string
	DestPath string
	Action   Action
}

func (e *NormalizedEvent) DedupKey() DedupKey {
	return DedupKey{
		RelKey:   e.RelKey,
		Bucket:   e.Bucket,
		DestPath: e.DestPath,
		Action:   e.Action,
	}
}

// LocalPath is the path to read from: the destination for moves, the source
// otherwise.
func (e *NormalizedEvent) LocalPath() string {
	if e.DestPath != "" {
		return e.DestPath
	}
	return e.SourcePath
}

func (e *NormalizedEvent) String() string {
	if e.DestPath != "" && e.DestPath != e.SourcePath {
		return fmt.Sprintf("%s %s -> %s", e.Action, e.SourcePath, e.DestPath)
	}
	return fmt.Sprintf("%s %s", e.Action, e.SourcePath)
}
