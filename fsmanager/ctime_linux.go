//go:build linux

package fsmanager

import (
	"os"
	"syscall"
	"time"
)

// changeTime returns the inode change time, mirroring Python's st_ctime on
// Linux. No library in the dependency set surfaces this, so it falls back
// to a raw syscall stat.
func changeTime(info os.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	}
	return info.ModTime()
}
