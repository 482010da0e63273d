package watcher

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// The object tag allow-list. Only these stat fields are ever tagged onto an
// uploaded object, under these exact names.
const (
	tagMode  = "st_mode"
	tagInode = "st_ino"
	tagUID   = "st_uid"
	tagGID   = "st_gid"
	tagSize  = "st_size"
	tagAtime = "st_atime"
	tagMtime = "st_mtime"
	tagCtime = "st_ctime"
)

// FileTags stats path and returns the URL-encoded object tag string
// (`key=value&key=value...`). A stat failure aborts the upload: no partial
// or untagged upload is permitted.
func FileTags(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat for tags %s: %w", path, err)
	}
	return encodeTags(statTags(info)), nil
}

func encodeTags(tags map[string]string) string {
	values := url.Values{}
	for name, value := range tags {
		values.Set(name, value)
	}
	return values.Encode()
}

// formatEpoch renders seconds+nanoseconds as float epoch seconds, trimming
// a zero fraction (1000.5 stays 1000.5, 1000.0 becomes 1000).
func formatEpoch(sec, nsec int64) string {
	f := float64(sec) + float64(nsec)/1e9
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
