//go:build !linux

package artifact

import "os"

// isReadable reports whether this process can read path. No portable
// access(2) syscall exists outside unix, so this falls back to an
// actual open attempt.
func isReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
