package artifact

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectFiles_IncludeExcludeAndUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tank.log"), "log")
	writeFile(t, filepath.Join(dir, "data", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "data", "b.tmp"), "b")

	files, err := collectFiles(zap.NewNop().Sugar(), dir, []string{"*.log", "*.txt"}, []string{"*.tmp"})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"tank.log", "a.txt"}, names)
}

func TestCollectFiles_IncludePatternWithPathSeparatorMatchesNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "logs", "access.txt"), "a")
	writeFile(t, filepath.Join(dir, "logs", "nested", "access.txt"), "b")
	writeFile(t, filepath.Join(dir, "data.txt"), "c")

	files, err := collectFiles(zap.NewNop().Sugar(), dir, []string{"logs/*.txt"}, nil)
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"logs/access.txt"}, rels)
}

func TestCollectFiles_EmptyIncludeCollectsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tank.log"), "log")

	files, err := collectFiles(zap.NewNop().Sugar(), dir, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRelativeTo_WithinRootReturnsRelativePath(t *testing.T) {
	root := "/job/artifacts"
	path := "/job/artifacts/sub/file.txt"
	assert.Equal(t, filepath.FromSlash("sub/file.txt"), relativeTo(path, root))
}

func TestRelativeTo_OutsideRootEscapesUnderRootSegment(t *testing.T) {
	root := "/job/artifacts"
	path := "/etc/passwd"
	got := relativeTo(path, root)
	assert.Equal(t, filepath.Join(rootSegment, "etc", "passwd"), got)
}

func TestCollectArtifacts_ArchivesIntoZipWhenIsArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tank.log"), "hello")

	settings := &model.ArtifactSettings{
		OutputName:    "result",
		IsArchive:     true,
		FilterInclude: []string{"*.log"},
	}
	files, err := collectArtifacts(zap.NewNop().Sugar(), settings, dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "result.zip", files[0].Key)

	zr, err := zip.OpenReader(files[0].LocalPath)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "tank.log", zr.File[0].Name)
}

func TestCollectArtifacts_FlatUploadUsesOutputNamePrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tank.log"), "hello")

	settings := &model.ArtifactSettings{
		OutputName:    "result",
		FilterInclude: []string{"*.log"},
	}
	files, err := collectArtifacts(zap.NewNop().Sugar(), settings, dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "result/tank.log", files[0].Key)
}
