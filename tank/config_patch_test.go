package tank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/model"
)

func newTestJob() *model.Job {
	job := model.NewJob("job-1")
	job.Config = map[string]model.PluginSection{
		"phantom": {"package": string(model.JobPluginPhantom), "enabled": true},
		"uploader_self": {
			"package":     string(model.JobPluginUploader),
			"enabled":     true,
			"api_address": "self:8080",
		},
		"uploader_other": {
			"package":     string(model.JobPluginUploader),
			"enabled":     true,
			"api_address": "other:8080",
		},
	}
	return job
}

func TestApplyConfigPatches_SetsCoreDirs(t *testing.T) {
	job := newTestJob()
	applyConfigPatches(job, "/artifacts/job-1", "/locks", "/cache", "self:8080")

	core := job.Config["core"]
	assert.Equal(t, "/artifacts/job-1", core["artifacts_base_dir"])
	assert.Equal(t, "/locks", core["lock_dir"])
}

func TestApplyConfigPatches_SetsPhantomCacheDirOnlyIfMissing(t *testing.T) {
	job := newTestJob()
	applyConfigPatches(job, "/artifacts/job-1", "/locks", "/cache", "")
	assert.Equal(t, "/cache", job.Config["phantom"]["cache_dir"])

	job2 := newTestJob()
	job2.Config["phantom"]["cache_dir"] = "/already-set"
	applyConfigPatches(job2, "/artifacts/job-1", "/locks", "/cache", "")
	assert.Equal(t, "/already-set", job2.Config["phantom"]["cache_dir"])
}

func TestApplyConfigPatches_DisablesOnlySelfUploader(t *testing.T) {
	job := newTestJob()
	applyConfigPatches(job, "/artifacts/job-1", "/locks", "/cache", "self:8080")

	assert.Equal(t, false, job.Config["uploader_self"]["enabled"])
	assert.Equal(t, true, job.Config["uploader_other"]["enabled"])
}

func TestApplyConfigPatches_NoOwnAddressLeavesUploadersUntouched(t *testing.T) {
	job := newTestJob()
	applyConfigPatches(job, "/artifacts/job-1", "/locks", "/cache", "")

	assert.Equal(t, true, job.Config["uploader_self"]["enabled"])
	assert.Equal(t, true, job.Config["uploader_other"]["enabled"])
}

func TestDumpJobConfig_WritesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	job := newTestJob()
	applyConfigPatches(job, "/artifacts/job-1", "/locks", "/cache", "")

	require.NoError(t, dumpJobConfig(job, dir))
	data, err := os.ReadFile(filepath.Join(dir, "config"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "artifacts_base_dir")
}
