//go:build darwin

package watcher

import (
	"os"
	"syscall"
)

func statTags(info os.FileInfo) map[string]string {
	tags := map[string]string{
		tagSize:  formatInt(info.Size()),
		tagMtime: formatEpoch(info.ModTime().Unix(), int64(info.ModTime().Nanosecond())),
	}

	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return tags
	}

	tags[tagMode] = formatUint(uint64(sys.Mode))
	tags[tagInode] = formatUint(sys.Ino)
	tags[tagUID] = formatUint(uint64(sys.Uid))
	tags[tagGID] = formatUint(uint64(sys.Gid))
	tags[tagAtime] = formatEpoch(sys.Atimespec.Sec, sys.Atimespec.Nsec)
	tags[tagMtime] = formatEpoch(sys.Mtimespec.Sec, sys.Mtimespec.Nsec)
	tags[tagCtime] = formatEpoch(sys.Ctimespec.Sec, sys.Ctimespec.Nsec)
	return tags
}
