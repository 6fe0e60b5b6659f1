package fsmanager

import (
	"os"
	"path/filepath"

	"github.com/ulta-agent/ulta/errors"
)

// FS describes the directory layout a single agent works within.
type FS struct {
	TmpDir   string
	TestsDir string
	LockDir  string
}

// NewFS builds an FS rooted at the three working directories, creating them
// (with the requested permissions) if they do not already exist.
func NewFS(tmpDir, testsDir, lockDir string, permissions os.FileMode) (FS, error) {
	fs := FS{TmpDir: tmpDir, TestsDir: testsDir, LockDir: lockDir}
	for _, dir := range []string{fs.TmpDir, fs.TestsDir, fs.LockDir} {
		if err := EnsureDir(dir, permissions); err != nil {
			return FS{}, err
		}
	}
	return fs, nil
}

// StpdCacheDir is the well-known cache directory nested under TestsDir.
func (fs FS) StpdCacheDir() string {
	return filepath.Join(fs.TestsDir, "stpd-cache")
}

// EnsureDir creates dir (and parents) with the given permissions if missing,
// and verifies the process can read, write, and traverse it.
func EnsureDir(dir string, permissions os.FileMode) error {
	if err := os.MkdirAll(dir, permissions); err != nil {
		return errors.Wrapf(err, "create dir %s", dir)
	}
	f, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "open dir %s", dir)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && err.Error() != "EOF" {
		return errors.Wrapf(err, "dir %s is not accessible", dir)
	}
	tmp, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return errors.Wrapf(err, "dir %s is not writable", dir)
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)
	return nil
}

// FSUsage is a point-in-time disk usage sample for a single mount point.
type FSUsage struct {
	Size      int64
	Used      int64
	Available int64
	Mount     string
}
