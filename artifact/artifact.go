// Package artifact publishes a finished job's test artifacts and
// generator log files to external storage once the job completes.
package artifact

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

// rootSegment prefixes the archive path of any artifact that falls
// outside the job's own artifact directory, since such paths have no
// well-defined relative form.
const rootSegment = "__root"

// ErrArtifactUpload marks every error this package returns.
var ErrArtifactUpload = errors.New("artifact upload failed")

// ArtifactUploader publishes whatever a finished job produced. Each of
// this package's uploaders implements it against a different transport.
type ArtifactUploader interface {
	PublishArtifacts(job *model.Job) error
}

// artifactFile is one file staged for upload: its path on disk and the
// key (object name) it should be uploaded under.
type artifactFile struct {
	LocalPath string
	Key       string
}

// collectArtifacts resolves the set of files a job's artifact settings
// select under root, archiving them into a single zip if requested.
func collectArtifacts(logger *zap.SugaredLogger, settings *model.ArtifactSettings, path string) ([]artifactFile, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	files, err := collectFiles(logger, root, settings.FilterInclude, settings.FilterExclude)
	if err != nil {
		return nil, err
	}

	if settings.IsArchive {
		archiveName := settings.OutputName + ".zip"
		archivePath := filepath.Join(root, filepath.Base(archiveName))
		if err := writeZipArchive(archivePath, root, files); err != nil {
			return nil, err
		}
		return []artifactFile{{LocalPath: archivePath, Key: archiveName}}, nil
	}

	out := make([]artifactFile, 0, len(files))
	for _, f := range files {
		key := settings.OutputName + "/" + filepath.ToSlash(relativeTo(f, root))
		out = append(out, artifactFile{LocalPath: f, Key: key})
	}
	return out, nil
}

// collectFiles unions every file matching an include pattern anywhere
// under root (or root's parent, if root isn't itself a directory), then
// subtracts anything matching an exclude pattern, then drops anything
// this process can't read. A nil or empty include list collects nothing.
func collectFiles(logger *zap.SugaredLogger, root string, include, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	base := root
	if !info.IsDir() {
		base = filepath.Dir(root)
	}

	files := make(map[string]struct{})
	for _, pattern := range include {
		matches, err := globRecursive(base, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			files[m] = struct{}{}
		}
	}
	for _, pattern := range exclude {
		matches, err := globRecursive(base, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			delete(files, m)
		}
	}

	out := make([]string, 0, len(files))
	for f := range files {
		if isReadable(f) {
			out = append(out, f)
		} else if logger != nil {
			logger.Errorf("file %s is not readable", f)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globRecursive matches pattern against every regular file found
// anywhere under root, mirroring Python's rglob: a separator-free
// pattern matches the basename at any depth, and a pattern containing
// separators matches that many trailing path segments starting at any
// depth.
func globRecursive(root, pattern string) ([]string, error) {
	patternSegs := strings.Split(filepath.ToSlash(pattern), "/")
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, matchErr := matchRelativeGlob(patternSegs, filepath.ToSlash(rel))
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}
		resolved, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		matches = append(matches, resolved)
		return nil
	})
	return matches, err
}

// matchRelativeGlob reports whether patternSegs (pattern split on "/")
// matches relPath's trailing segments starting at some depth, i.e.
// whether relPath matches "**/" + pattern.
func matchRelativeGlob(patternSegs []string, relPath string) (bool, error) {
	relSegs := strings.Split(relPath, "/")
	if len(patternSegs) > len(relSegs) {
		return false, nil
	}
	for start := 0; start+len(patternSegs) <= len(relSegs); start++ {
		candidate := strings.Join(relSegs[start:start+len(patternSegs)], "/")
		ok, err := filepath.Match(strings.Join(patternSegs, "/"), candidate)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// relativeTo expresses path relative to root, unless path falls outside
// root entirely, in which case it is re-rooted under rootSegment so the
// resulting archive path never escapes its intended directory.
func relativeTo(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return rel
	}
	trimmed := strings.TrimLeft(filepath.ToSlash(path), "/")
	return filepath.Join(rootSegment, trimmed)
}

func writeZipArchive(archivePath, root string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFileToZip(zw, f, filepath.ToSlash(relativeTo(f, root))); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFileToZip(zw *zip.Writer, localPath, arcname string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = arcname
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
