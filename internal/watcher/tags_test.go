package watcher

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTags(t *testing.T) {
	got := encodeTags(map[string]string{
		tagSize:  "42",
		tagMtime: "1000.5",
	})
	assert.Equal(t, "st_mtime=1000.5&st_size=42", got)
}

func TestFormatEpoch(t *testing.T) {
	tests := []struct {
		name string
		sec  int64
		nsec int64
		want string
	}{
		{"whole seconds", 1000, 0, "1000"},
		{"half second", 1000, 500000000, "1000.5"},
		{"quarter second", 10, 250000000, "10.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEpoch(tt.sec, tt.nsec))
		})
	}
}

func TestFileTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 42), 0o644))
	mtime := time.Unix(1000, 500000000)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	tags, err := FileTags(path)
	require.NoError(t, err)

	values, err := url.ParseQuery(tags)
	require.NoError(t, err)
	assert.Equal(t, "42", values.Get(tagSize))
	assert.Equal(t, "1000.5", values.Get(tagMtime))
	assert.NotEmpty(t, values.Get(tagMode))
}

func TestFileTagsMissingFile(t *testing.T) {
	_, err := FileTags(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
