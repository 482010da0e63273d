//go:build !linux && !darwin

package watcher

import (
	"os"
)

// Platforms without a POSIX stat structure only get the portable fields.
func statTags(info os.FileInfo) map[string]string {
	return map[string]string{
		tagMode:  formatUint(uint64(info.Mode())),
		tagSize:  formatInt(info.Size()),
		tagMtime: formatEpoch(info.ModTime().Unix(), int64(info.ModTime().Nanosecond())),
	}
}
