// Package ulta orchestrates the agent's main loop: fetch a job from the
// control plane, stage its test data, drive the tank through it, claim
// status updates, and publish its artifacts once it finishes.
package ulta

import (
	"time"

	"github.com/ulta-agent/ulta/artifact"
	"github.com/ulta-agent/ulta/model"
	"github.com/ulta-agent/ulta/tank"
)

// JobPayload is one test-data entry attached to a claimed job, either a
// transient upload or a pointer into object storage.
type JobPayload struct {
	Name            string
	IsTransient     bool
	StorageBucket   string
	StorageFilename string
}

// JobMessage is the control plane's wire representation of a claimed
// job, before it's been staged locally.
type JobMessage struct {
	ID               string
	LogGroupID       string
	ConfigJSON       string
	DataPayload      []JobPayload
	ArtifactSettings *model.ArtifactSettings
}

// Signal is the action the control plane wants the agent to take on a
// running job, polled once per loop iteration.
type Signal struct {
	Name  string
	RunIn time.Duration
}

// LoadtestingClient is the subset of the control-plane RPC surface this
// package drives. Implemented by the transport package.
type LoadtestingClient interface {
	GetJob(jobID string) (*JobMessage, error)
	GetJobSignal(jobID string) (Signal, error)
	ClaimJobStatus(jobID, status, errMsg, errType string) error
	DownloadTransientAmmo(jobID, ammoName, localPath string) error
}

// ObjectStore downloads a single test-data file from object storage.
// Implemented by the transport package's S3 client; distinct from
// artifact.ObjectStore, which only uploads, since each consumer here
// needs a different narrow slice of the same underlying client.
type ObjectStore interface {
	Download(bucket, key, localPath string) error
}

// TankClient is the subset of tank.Client this package drives.
type TankClient interface {
	IsIdle() bool
	PrepareJob(job *model.Job, files []string) error
	RunJob() error
	StopJob() error
	Finish()
	GetJobStatus(tankJobID string) model.JobStatus
	GetTankStatus() tank.Status
}

// NamedUploader pairs an artifact uploader with a name used only for
// logging which one failed.
type NamedUploader struct {
	Name     string
	Uploader artifact.ArtifactUploader
}
