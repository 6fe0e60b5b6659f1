package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

type fakeObjectStore struct {
	uploaded []string
	failOn   string
}

func (s *fakeObjectStore) Upload(sourceFile, s3Filename, s3Bucket string) error {
	if s3Filename == s.failOn {
		return errors.New("object storage error")
	}
	s.uploaded = append(s.uploaded, s3Filename)
	return nil
}

func TestS3Uploader_NoSettingsIsNoOp(t *testing.T) {
	store := &fakeObjectStore{}
	u := NewS3Uploader(zap.NewNop().Sugar(), store, cancel.New())
	job := model.NewJob("job-1")
	job.ArtifactDirPath = t.TempDir()

	require.NoError(t, u.PublishArtifacts(job))
	assert.Empty(t, store.uploaded)
}

func TestS3Uploader_PublishesCollectedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("x"), 0o644))

	store := &fakeObjectStore{}
	u := NewS3Uploader(zap.NewNop().Sugar(), store, cancel.New())
	job := model.NewJob("job-1")
	job.ArtifactDirPath = dir
	job.UploadArtifactSettings = &model.ArtifactSettings{
		OutputBucket:  "bucket",
		OutputName:    "result",
		FilterInclude: []string{"*.log"},
	}

	require.NoError(t, u.PublishArtifacts(job))
	assert.Equal(t, []string{"result/tank.log"}, store.uploaded)
}

func TestS3Uploader_CombinesPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("x"), 0o644))

	store := &fakeObjectStore{failOn: "result/tank.log"}
	u := NewS3Uploader(zap.NewNop().Sugar(), store, cancel.New())
	job := model.NewJob("job-1")
	job.ArtifactDirPath = dir
	job.UploadArtifactSettings = &model.ArtifactSettings{
		OutputBucket:  "bucket",
		OutputName:    "result",
		FilterInclude: []string{"*.log"},
	}

	err := u.PublishArtifacts(job)
	assert.ErrorIs(t, err, ErrArtifactUpload)
}

func TestS3Uploader_ForcedCancellationStopsUpload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("x"), 0o644))

	store := &fakeObjectStore{}
	c := cancel.New()
	c.Notify("shutting down", cancel.Forced)
	u := NewS3Uploader(zap.NewNop().Sugar(), store, c)
	job := model.NewJob("job-1")
	job.ArtifactDirPath = dir
	job.UploadArtifactSettings = &model.ArtifactSettings{
		OutputBucket:  "bucket",
		OutputName:    "result",
		FilterInclude: []string{"*.log"},
	}

	err := u.PublishArtifacts(job)
	assert.True(t, cancel.IsRequest(err))
	assert.Empty(t, store.uploaded)
}
