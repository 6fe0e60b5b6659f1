package fsmanager

import (
	"errors"
	"fmt"
	"os"

	"github.com/ulta-agent/ulta/state"
	"go.uber.org/zap"
)

type requirement struct {
	path    string
	minimum int64
	cleanup func(limit int64) error
}

// FileSystemObserver verifies the working directories exist, are writable,
// and have enough headroom before a job runs, invoking a best-effort
// cleanup pass when a directory runs low.
type FileSystemObserver struct {
	fs     FS
	usage  *FilesystemUsage
	lock   *MutationLock
	obs    *state.Observer
	logger *zap.SugaredLogger

	permissions os.FileMode
}

// NewFileSystemObserver wires a healthcheck around fs, consulting cleanup
// for any directory that falls below its minimum.
func NewFileSystemObserver(fs FS, usage *FilesystemUsage, lock *MutationLock, obs *state.Observer, logger *zap.SugaredLogger) *FileSystemObserver {
	return &FileSystemObserver{fs: fs, usage: usage, lock: lock, obs: obs, logger: logger, permissions: 0o755}
}

const (
	tmpDirMinBytes   = 2 << 30
	testsDirMinBytes = 2 << 30
	lockDirMinBytes  = 1 << 20
)

// Healthcheck ensures every working directory exists, is accessible, and
// has enough free space, running cleanup when it doesn't. Every
// requirement is checked independently — a failure on one directory (e.g.
// a missing lock dir) does not skip the checks for the others; failures
// are recorded on the shared State rather than aborting the pass.
func (o *FileSystemObserver) Healthcheck(cleanup func(limit int64) error) {
	reqs := []requirement{
		{o.fs.TmpDir, tmpDirMinBytes, cleanup},
		{o.fs.TestsDir, testsDirMinBytes, cleanup},
		{o.fs.LockDir, lockDirMinBytes, nil},
	}

	for _, r := range reqs {
		_ = o.checkWorkingDir(r)
	}
	for _, r := range reqs {
		o.checkFreeSpace(r)
	}
}

func (o *FileSystemObserver) checkWorkingDir(r requirement) error {
	return o.obs.Observe(fmt.Sprintf("check working dir %s", r.path), state.ObserveOptions{
		Critical: []func(error) bool{func(error) bool { return true }},
	}, func() error {
		return EnsureDir(r.path, o.permissions)
	})
}

func (o *FileSystemObserver) checkFreeSpace(r requirement) {
	_ = o.obs.Observe(fmt.Sprintf("check free space %s", r.path), state.ObserveOptions{
		Error: []func(error) bool{func(err error) bool {
			var nfs *NotEnoughFreeSpaceError
			return errors.As(err, &nfs)
		}},
	}, func() error {
		return o.ensureFreeSpace(r)
	})
}

func (o *FileSystemObserver) ensureFreeSpace(r requirement) error {
	available, known := o.availableBytes(r.path)
	if !known {
		if o.logger != nil {
			o.logger.Warnw("unable to find free space info for dir", "path", r.path)
		}
		return nil
	}
	if available >= r.minimum {
		return nil
	}

	if r.cleanup != nil && o.lock.TryLockCleanup() {
		func() {
			defer o.lock.UnlockCleanup()
			_ = r.cleanup(r.minimum)
		}()
		available, known = o.availableBytes(r.path)
		if known && available >= r.minimum {
			return nil
		}
	}

	return &NotEnoughFreeSpaceError{Path: r.path, Available: available, Required: r.minimum}
}

func (o *FileSystemObserver) availableBytes(path string) (int64, bool) {
	usage := o.usage.GetBatch([]string{path})
	u, ok := usage[path]
	if !ok {
		return -1, false
	}
	return u.Available, true
}
