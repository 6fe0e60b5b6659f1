package ulta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/model"
)

// parseJobConfig decodes a claimed job's tank configuration from its
// control-plane JSON representation.
func parseJobConfig(raw string) (map[string]model.PluginSection, error) {
	var config map[string]model.PluginSection
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetJob claims a pending job from the control plane and stages its test
// data locally. A nil job with a nil error means the queue was empty.
func (s *Service) GetJob(jobID string) (*model.Job, error) {
	msg, err := s.client.GetJob(jobID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Infow("no pending jobs for agent")
			return nil, nil
		}
		return nil, err
	}
	if msg == nil || msg.ID == "" {
		return nil, nil
	}

	job := model.NewJob(msg.ID)
	job.LogGroupID = msg.LogGroupID
	job.UploadArtifactSettings = extractArtifactSettings(msg)
	job.TestDataDir = filepath.Join(s.workDir, "test_data_"+msg.ID)

	config, err := parseJobConfig(msg.ConfigJSON)
	if err != nil {
		s.logger.Errorw("invalid job config format", "error", err)
		s.claimJobFailed(job, "Invalid job config:"+err.Error(), "JOB_CONFIG")
		return nil, nil
	}
	job.Config = config

	if err := os.MkdirAll(job.TestDataDir, 0o755); err != nil {
		s.logger.Errorw("error loading test data", "error", err)
		s.claimJobFailed(job, "Error loading test data: "+err.Error(), "JOB_AMMO")
		return nil, nil
	}

	ammos, err := s.extractAmmo(msg, job.TestDataDir)
	if err != nil {
		if isObjectStorageError(err) || errors.Is(err, errInvalidJobData) {
			s.logger.Errorw("error loading test data", "error", err)
			s.claimJobFailed(job, "Error loading test data: "+err.Error()+")", "JOB_AMMO")
			return nil, nil
		}
		s.logger.Errorw("unknown exception", "error", err)
		s.claimJobFailed(job, "Unknown error occured: "+err.Error()+")", "UNKNOWN")
		return nil, err
	}
	job.Ammos = ammos

	return job, nil
}

// extractAmmo stages every test-data entry attached to a claimed job,
// downloading each into testDataDir under its own name. A name that
// would place its file outside testDataDir is rejected rather than
// written.
func (s *Service) extractAmmo(msg *JobMessage, testDataDir string) ([]model.Ammo, error) {
	var out []model.Ammo
	for _, entry := range msg.DataPayload {
		if entry.Name == "" {
			s.logger.Warnw("test data specified with no name")
			return nil, errors.Wrap(errInvalidJobData, "test data specified with no name")
		}

		ammoPath := filepath.Join(testDataDir, strings.Trim(entry.Name, "/"))
		if !isWithinDir(testDataDir, ammoPath) {
			s.logger.Errorw("cannot write ammo file", "path", ammoPath)
			return nil, errors.Wrap(errInvalidJobData, "invalid test data name")
		}

		if entry.IsTransient {
			s.logger.Infow("downloading transient ammo", "job_id", msg.ID, "name", entry.Name)
			if err := s.client.DownloadTransientAmmo(msg.ID, entry.Name, ammoPath); err != nil {
				return nil, err
			}
		} else {
			s.logger.Infow("downloading s3 file", "bucket", entry.StorageBucket, "key", entry.StorageFilename)
			if err := s.store.Download(entry.StorageBucket, entry.StorageFilename, ammoPath); err != nil {
				return nil, err
			}
		}

		out = append(out, model.Ammo{Name: entry.Name, Source: ammoPath})
	}
	return out, nil
}

// isWithinDir reports whether path resolves to root or somewhere
// beneath it, after cleaning both.
func isWithinDir(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// extractArtifactSettings translates a claimed job's upload settings,
// treating a missing bucket or name as "don't publish artifacts".
func extractArtifactSettings(msg *JobMessage) *model.ArtifactSettings {
	if msg.ArtifactSettings == nil {
		return nil
	}
	settings := msg.ArtifactSettings
	if settings.OutputBucket == "" || settings.OutputName == "" {
		return nil
	}
	copied := *settings
	return &copied
}

// claimJobStatus records a job's status locally and reports it to the
// control plane.
func (s *Service) claimJobStatus(job *model.Job, status model.JobStatus) error {
	job.UpdateStatus(status)
	return s.client.ClaimJobStatus(job.ID, status.Status, status.Error, status.ErrorType)
}

// claimJobFailed is claimJobStatus specialized to a FAILED terminal
// status carrying an error message and type.
func (s *Service) claimJobFailed(job *model.Job, errMsg, errType string) {
	if err := s.claimJobStatus(job, model.NewJobStatus(model.StatusFailed, errMsg, errType, nil)); err != nil {
		s.logger.Errorw("failed to set error to job", "error_type", errType, "error", err)
	}
}

// claimPostJobError reports an error that occurred after the job's
// terminal status was already claimed, e.g. during artifact upload,
// without overwriting that terminal status.
func (s *Service) claimPostJobError(job *model.Job, errMsg, errType string) {
	if err := s.client.ClaimJobStatus(job.ID, model.StatusUnspecified, errMsg, errType); err != nil {
		s.logger.Errorw("failed to set error to job", "error_type", errType, "error", err)
	}
}
