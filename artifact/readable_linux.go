//go:build linux

package artifact

import "syscall"

// isReadable reports whether this process can read path, mirroring
// Python's os.access(path, os.R_OK) check.
func isReadable(path string) bool {
	return syscall.Access(path, 0x04) == nil
}
