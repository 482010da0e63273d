package blob

import (
	"context"
	"time"
)

// Client is the narrow object-store surface the watcher core consumes.
// PutFile uploads a local file under key with a URL-encoded tag string,
// Exists/ListKeys serve the self-test and reconciliation paths.
type Client interface {
	// PutFile uploads the file at localPath to key, applying the
	// URL-encoded object tag string. Retries transient failures up to the
	// client's attempt budget before returning.
	PutFile(ctx context.Context, params *PutFileParams) (*PutFileResult, error)

	// Delete removes the object at key. It is not retried by the caller.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// ListKeys returns every object key under the bucket spec's prefix,
	// with the prefix stripped so keys are relative, like local ones.
	ListKeys(ctx context.Context) ([]string, error)

	// CheckBucket verifies the bucket exists and is reachable. A missing
	// bucket is a startup-fatal condition for the watcher.
	CheckBucket(ctx context.Context) error
}

type PutFileParams struct {
	Key       string
	LocalPath string
	Tagging   string
}

type PutFileResult struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}
