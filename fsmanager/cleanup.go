package fsmanager

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultStpdCacheTTL   = 7 * 24 * time.Hour
	defaultNetortCacheTTL = 7 * 24 * time.Hour

	defaultJobDiskLimitMB = 2048
	diskLimitHeadroomMB   = 100
)

// CleanupJob is the subset of job state FilesystemCleanup needs to compute
// its disk budget and protect in-flight artifacts from deletion.
type CleanupJob struct {
	TestDataDir     string
	ArtifactDirPath string
	DiskLimitMB     int64 // 0 means "use the default"
}

// FilesystemCleanup frees disk space for a single job, best-effort: every
// step logs and continues rather than propagating an error. NetortDir, if
// set, is also swept for stale downloaded resources.
type FilesystemCleanup struct {
	logger *zap.SugaredLogger
	fs     FS
	job    CleanupJob
	usage  *FilesystemUsage

	netortDir      string
	stpdCacheTTL   time.Duration
	netortCacheTTL time.Duration

	jobDiskLimit int64
	forbidden    map[string]struct{}
}

func NewFilesystemCleanup(logger *zap.SugaredLogger, fs FS, job CleanupJob, usage *FilesystemUsage, netortDir string) *FilesystemCleanup {
	c := &FilesystemCleanup{
		logger:         logger,
		fs:             fs,
		job:            job,
		usage:          usage,
		netortDir:      netortDir,
		stpdCacheTTL:   defaultStpdCacheTTL,
		netortCacheTTL: defaultNetortCacheTTL,
	}
	c.jobDiskLimit = c.computeJobDiskLimit()
	c.forbidden = c.buildForbiddenSet()
	return c
}

func (c *FilesystemCleanup) computeJobDiskLimit() int64 {
	limitMB := c.job.DiskLimitMB
	if limitMB <= 0 {
		limitMB = defaultJobDiskLimitMB
	}
	limitMB += diskLimitHeadroomMB
	return limitMB * 1024 * 1024
}

func (c *FilesystemCleanup) buildForbiddenSet() map[string]struct{} {
	candidates := []string{
		c.fs.StpdCacheDir(),
		c.fs.TestsDir,
		c.fs.TmpDir,
		filepath.Join(c.fs.TestsDir, "lunapark"),
	}
	if c.job.TestDataDir != "" {
		candidates = append(candidates, c.job.TestDataDir)
		candidates = append(candidates, strings.Replace(c.job.TestDataDir, "/test_data_", "/", 1))
	}
	if c.job.ArtifactDirPath != "" {
		candidates = append(candidates, c.job.ArtifactDirPath)
	}

	forbidden := make(map[string]struct{}, len(candidates))
	for _, d := range candidates {
		resolved, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if _, err := os.Stat(resolved); err != nil {
			continue
		}
		forbidden[resolved] = struct{}{}
	}
	return forbidden
}

func (c *FilesystemCleanup) isForbidden(path string) bool {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := c.forbidden[resolved]
	return ok
}

// Cleanup runs every sweep in order, logging and continuing past any
// individual failure.
func (c *FilesystemCleanup) Cleanup() {
	c.logErrors("cleanup temporary dir", c.cleanTemporaryDir)
	c.logErrors("remove old stpd cache files", c.cleanStpdCacheFiles)
	c.logErrors("clean netort resources", c.cleanNetortResources)
	c.logErrors("remove old tests dirs", c.cleanTestsDirs)
}

func (c *FilesystemCleanup) logErrors(step string, fn func() error) {
	if err := fn(); err != nil && c.logger != nil {
		c.logger.Errorw("error during cleanup", "step", step, "error", err)
	}
}

func (c *FilesystemCleanup) freeSpace(path string) int64 {
	usage := c.usage.GetBatch([]string{path})
	u, ok := usage[path]
	if !ok {
		return -1
	}
	return u.Available
}

// cleanTemporaryDir deletes everything directly under tmp_dir that isn't
// in the forbidden set, regardless of free space — the directory is wiped
// clean between jobs.
func (c *FilesystemCleanup) cleanTemporaryDir() error {
	entries, err := os.ReadDir(c.fs.TmpDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		full := filepath.Join(c.fs.TmpDir, e.Name())
		if c.isForbidden(full) {
			continue
		}
		os.RemoveAll(full)
	}
	return nil
}

// cleanTestsDirs removes subdirectories of tests_dir, oldest first, until
// free space meets the job's disk budget.
func (c *FilesystemCleanup) cleanTestsDirs() error {
	return c.sweepOldest(c.fs.TestsDir, func(e os.DirEntry) bool {
		return e.IsDir() && e.Name() != "stpd-cache"
	}, func() bool { return c.freeSpace(c.fs.TestsDir) >= c.jobDiskLimit }, nil)
}

// cleanStpdCacheFiles removes files under tests_dir/stpd-cache older than
// stpdCacheTTL, or until free space meets the job's disk budget.
func (c *FilesystemCleanup) cleanStpdCacheFiles() error {
	threshold := time.Now().Add(-c.stpdCacheTTL)
	return c.sweepOldest(c.fs.StpdCacheDir(), func(e os.DirEntry) bool {
		return !e.IsDir()
	}, func() bool { return c.freeSpace(c.fs.TestsDir) >= c.jobDiskLimit }, &threshold)
}

// cleanNetortResources removes files under netortDir older than
// netortCacheTTL, or until free space meets the job's disk budget.
func (c *FilesystemCleanup) cleanNetortResources() error {
	if c.netortDir == "" {
		return nil
	}
	threshold := time.Now().Add(-c.netortCacheTTL)
	return c.sweepOldest(c.netortDir, func(e os.DirEntry) bool {
		return !e.IsDir()
	}, func() bool { return c.freeSpace(c.netortDir) >= c.jobDiskLimit }, &threshold)
}

type ageEntry struct {
	path string
	ctime time.Time
}

// sweepOldest deletes matching entries under dir, oldest (by ctime) first.
// If threshold is non-nil, entries older than it are always removed, and
// newer ones are removed only until limitMet returns true. If threshold is
// nil, the sweep stops as soon as limitMet returns true.
func (c *FilesystemCleanup) sweepOldest(dir string, match func(os.DirEntry) bool, limitMet func() bool, threshold *time.Time) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var candidates []ageEntry
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if c.isForbidden(full) || !match(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, ageEntry{path: full, ctime: changeTime(info)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ctime.Before(candidates[j].ctime) })

	for _, entry := range candidates {
		if threshold != nil && entry.ctime.After(*threshold) && limitMet() {
			break
		}
		if threshold == nil && limitMet() {
			break
		}
		os.RemoveAll(entry.path)
	}
	return nil
}
