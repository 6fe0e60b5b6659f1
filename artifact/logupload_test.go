package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

type sentLog struct {
	logGroupID   string
	messages     []string
	resourceType string
	resourceID   string
}

type fakeLogClient struct {
	sent []sentLog
	err  error
}

func (c *fakeLogClient) SendLog(logGroupID string, messages []string, resourceType, resourceID string) error {
	c.sent = append(c.sent, sentLog{logGroupID, messages, resourceType, resourceID})
	return c.err
}

func TestLogUploader_SendsTankAndGeneratorLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("tank line\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "phantom_123.log"), []byte("phantom line\n"), 0o644))

	client := &fakeLogClient{}
	u := NewLogUploader(zap.NewNop().Sugar(), client, cancel.New())
	job := model.NewJob("job-1")
	job.LogGroupID = "group-1"
	job.ArtifactDirPath = dir
	job.Config = map[string]model.PluginSection{
		"phantom": {"package": string(model.JobPluginPhantom), "enabled": true},
	}

	require.NoError(t, u.PublishArtifacts(job))
	require.Len(t, client.sent, 2)
	assert.Equal(t, "loadtesting.log.tank", client.sent[0].resourceType)
	assert.Equal(t, []string{"tank line\n"}, client.sent[0].messages)
	assert.Equal(t, "loadtesting.log.phantom", client.sent[1].resourceType)
	assert.Equal(t, "job-1", client.sent[1].resourceID)
}

func TestLogUploader_MissingLogGroupIDIsNoOp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("x\n"), 0o644))

	client := &fakeLogClient{}
	u := NewLogUploader(zap.NewNop().Sugar(), client, cancel.New())
	job := model.NewJob("job-1")
	job.ArtifactDirPath = dir

	require.NoError(t, u.PublishArtifacts(job))
	assert.Empty(t, client.sent)
}

func TestLogUploader_UnknownGeneratorSkipsGeneratorLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tank.log"), []byte("x\n"), 0o644))

	client := &fakeLogClient{}
	u := NewLogUploader(zap.NewNop().Sugar(), client, cancel.New())
	job := model.NewJob("job-1")
	job.LogGroupID = "group-1"
	job.ArtifactDirPath = dir
	job.Config = map[string]model.PluginSection{}

	require.NoError(t, u.PublishArtifacts(job))
	require.Len(t, client.sent, 1)
	assert.Equal(t, "loadtesting.log.tank", client.sent[0].resourceType)
}

func TestFindLogFile_TankMissingReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path, err := findLogFile(dir, LogTypeTank)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestFindLogFile_MatchesGeneratorPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pandora_abc.log"), []byte("x"), 0o644))

	path, err := findLogFile(dir, LogTypePandora)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pandora_abc.log"), path)
}
