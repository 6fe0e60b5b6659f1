package fsmanager

import (
	"bufio"
	"bytes"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"
)

// FilesystemUsage reports disk usage for a batch of paths, preferring the
// platform disk-usage syscall and falling back to parsing `df` output when
// the syscall path is unavailable. Either strategy is permanently disabled
// for the lifetime of this instance the first time it errors, so a broken
// strategy is not retried on every call.
type FilesystemUsage struct {
	logger *zap.SugaredLogger

	mu          sync.Mutex
	useNative   bool
	useFallback bool
}

// NewFilesystemUsage returns a FilesystemUsage with both strategies enabled.
func NewFilesystemUsage(logger *zap.SugaredLogger) *FilesystemUsage {
	return &FilesystemUsage{logger: logger, useNative: true, useFallback: true}
}

// GetBatch returns usage per requested path. Paths the active strategies
// could not resolve are simply absent from the result; if both strategies
// are disabled the result is empty.
func (u *FilesystemUsage) GetBatch(paths []string) map[string]FSUsage {
	if native, ok := u.tryNative(paths); ok {
		return native
	}
	if fallback, ok := u.tryFallback(paths); ok {
		return fallback
	}
	return map[string]FSUsage{}
}

func (u *FilesystemUsage) tryNative(paths []string) (map[string]FSUsage, bool) {
	u.mu.Lock()
	enabled := u.useNative
	u.mu.Unlock()
	if !enabled {
		return nil, false
	}

	result := make(map[string]FSUsage, len(paths))
	for _, p := range paths {
		stat, err := disk.Usage(p)
		if err != nil {
			u.mu.Lock()
			u.useNative = false
			u.mu.Unlock()
			if u.logger != nil {
				u.logger.Warnw("native disk usage probe failed, disabling native strategy", "path", p, "error", err)
			}
			return nil, false
		}
		result[p] = FSUsage{
			Size:      int64(stat.Total),
			Used:      int64(stat.Used),
			Available: int64(stat.Free),
			Mount:     stat.Path,
		}
	}
	return result, true
}

func (u *FilesystemUsage) tryFallback(paths []string) (map[string]FSUsage, bool) {
	u.mu.Lock()
	enabled := u.useFallback
	u.mu.Unlock()
	if !enabled {
		return nil, false
	}

	mounts, err := runDf()
	if err != nil {
		u.mu.Lock()
		u.useFallback = false
		u.mu.Unlock()
		if u.logger != nil {
			u.logger.Warnw("df fallback failed, disabling fallback strategy", "error", err)
		}
		return nil, false
	}

	result := make(map[string]FSUsage, len(paths))
	for _, p := range paths {
		if usage, ok := matchMount(mounts, p); ok {
			result[p] = usage
		}
	}
	return result, true
}

type dfMount struct {
	source string
	usage  FSUsage
}

func runDf() ([]dfMount, error) {
	cmd := exec.Command("df", "-l", "-B1", "-x", "fuse", "-x", "tmpfs", "-x", "devtmpfs")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseDf(out)
}

func parseDf(out []byte) ([]dfMount, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	var mounts []dfMount
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		size, _ := strconv.ParseInt(fields[1], 10, 64)
		used, _ := strconv.ParseInt(fields[2], 10, 64)
		avail, _ := strconv.ParseInt(fields[3], 10, 64)
		mounts = append(mounts, dfMount{
			source: fields[0],
			usage: FSUsage{
				Size:      size,
				Used:      used,
				Available: avail,
				Mount:     fields[5],
			},
		})
	}
	return mounts, scanner.Err()
}

// matchMount finds the most specific mount point that is an ancestor of path.
func matchMount(mounts []dfMount, path string) (FSUsage, bool) {
	var best FSUsage
	bestLen := -1
	found := false
	for _, m := range mounts {
		if !isRelativeTo(path, m.usage.Mount) {
			continue
		}
		if l := len(m.usage.Mount); l > bestLen {
			bestLen = l
			best = m.usage
			found = true
		}
	}
	return best, found
}

func isRelativeTo(path, mount string) bool {
	rel, err := filepath.Rel(mount, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
