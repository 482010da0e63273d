package blob

import (
	"errors"
	"strings"
)

var ErrEmptyBucketSpec = errors.New("bucket spec is empty")

// BucketSpec is a `bucket` or `bucket/prefix` style bucket specifier. When a
// prefix is present every remote key is placed under it.
type BucketSpec struct {
	Bucket string
	Prefix string
}

// ParseBucketSpec splits a `bucket/prefix` specifier on the first separator.
// A non-empty prefix always carries a trailing slash so key building is a
// plain concatenation.
func ParseBucketSpec(spec string) (BucketSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return BucketSpec{}, ErrEmptyBucketSpec
	}

	bucket, prefix, found := strings.Cut(spec, "/")
	if !found || prefix == "" {
		return BucketSpec{Bucket: bucket}, nil
	}

	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return BucketSpec{Bucket: bucket, Prefix: prefix}, nil
}

// RemoteKey builds the full object key for a watch-root-relative key.
func (b BucketSpec) RemoteKey(relKey string) string {
	return b.Prefix + relKey
}

// RelativeKey strips the spec prefix from a full object key.
func (b BucketSpec) RelativeKey(key string) string {
	return strings.TrimPrefix(key, b.Prefix)
}

func (b BucketSpec) String() string {
	if b.Prefix == "" {
		return b.Bucket
	}
	return b.Bucket + "/" + strings.TrimSuffix(b.Prefix, "/")
}
