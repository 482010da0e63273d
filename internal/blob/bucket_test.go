package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBucketSpec(t *testing.T) {
	tests := []struct {
		name       string
		spec       string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"bucket only", "mybucket", "mybucket", "", false},
		{"bucket with prefix", "mybucket/backups", "mybucket", "backups/", false},
		{"nested prefix", "mybucket/a/b/c", "mybucket", "a/b/c/", false},
		{"trailing slash", "mybucket/", "mybucket", "", false},
		{"prefix with trailing slash", "mybucket/backups/", "mybucket", "backups/", false},
		{"surrounding whitespace", "  mybucket/backups  ", "mybucket", "backups/", false},
		{"empty", "", "", "", true},
		{"whitespace only", "   ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseBucketSpec(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEmptyBucketSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, spec.Bucket)
			assert.Equal(t, tt.wantPrefix, spec.Prefix)
		})
	}
}

func TestBucketSpecKeys(t *testing.T) {
	spec, err := ParseBucketSpec("mybucket/backups")
	require.NoError(t, err)

	assert.Equal(t, "backups/a/b.txt", spec.RemoteKey("a/b.txt"))
	assert.Equal(t, "a/b.txt", spec.RelativeKey("backups/a/b.txt"))

	// round trip
	assert.Equal(t, "a/b.txt", spec.RelativeKey(spec.RemoteKey("a/b.txt")))
}

func TestBucketSpecString(t *testing.T) {
	spec, err := ParseBucketSpec("mybucket/backups")
	require.NoError(t, err)
	assert.Equal(t, "mybucket/backups", spec.String())

	spec, err = ParseBucketSpec("mybucket")
	require.NoError(t, err)
	assert.Equal(t, "mybucket", spec.String())
}
