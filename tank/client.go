package tank

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/fsmanager"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TankError is returned for failures in driving the generator
// lifecycle itself (as opposed to errors the generator reports about
// the test it ran).
var TankError = errors.New("tank error")

const finishStatusFilename = "finish_status.yaml"

const defaultWorkerTimeout = 60 * time.Second

// Client wraps one generator subprocess invocation behind the
// prepare/run/stop/finish lifecycle the control loop drives, deriving
// TankStatus from the live worker (or a stale lock file, if another
// process still owns it).
type Client struct {
	logger                 *zap.SugaredLogger
	fs                     fsmanager.FS
	client                 UploaderClient
	dataUploaderAPIAddress string
	generatorBinary        string
	workerFactory           func(cfg WorkerConfig, testID string) (Worker, error)
	workerTimeout          time.Duration

	mu         sync.Mutex
	worker     Worker
	background []backgroundWorker
	finalizers []finalizer
}

// NewClient builds a tank Client. generatorBinary is the command line
// used to launch the generator subprocess (e.g. "yandex-tank"); it is
// split with shell-word rules before exec.
func NewClient(logger *zap.SugaredLogger, fs fsmanager.FS, client UploaderClient, dataUploaderAPIAddress, generatorBinary string) *Client {
	return &Client{
		logger:                 logger,
		fs:                     fs,
		client:                 client,
		dataUploaderAPIAddress: dataUploaderAPIAddress,
		generatorBinary:        generatorBinary,
		workerTimeout:          defaultWorkerTimeout,
		workerFactory: func(cfg WorkerConfig, testID string) (Worker, error) {
			return newCommandWorker(cfg, testID)
		},
	}
}

// SetWorkerFactory overrides how Worker instances are constructed;
// tests use this to inject a fake generator.
func (c *Client) SetWorkerFactory(factory func(cfg WorkerConfig, testID string) (Worker, error)) {
	c.workerFactory = factory
}

func (c *Client) generateTestID(job *model.Job) string {
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), job.ID)
}

// PrepareJob patches the job's config for this agent's filesystem
// layout, dumps it, launches the generator subprocess, and registers
// the background uploaders and finalizers. PrepareJob never calls the
// worker's Shoot; RunJob does.
func (c *Client) PrepareJob(job *model.Job, files []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isTestSessionRunningLocked() {
		return errors.Wrap(TankError, "another test is already running")
	}

	testID := c.generateTestID(job)
	artifactDirPath, err := filepath.Abs(filepath.Join(c.fs.TestsDir, testID))
	if err != nil {
		return errors.Wrap(err, "resolve artifact dir")
	}

	applyConfigPatches(job, artifactDirPath, c.fs.LockDir, c.fs.StpdCacheDir(), c.dataUploaderAPIAddress)
	if err := dumpJobConfig(job, c.fs.TestsDir); err != nil {
		return errors.Wrap(err, "dump job config")
	}

	if err := os.MkdirAll(artifactDirPath, 0o755); err != nil {
		return errors.Wrap(err, "create artifact dir")
	}

	worker, err := c.workerFactory(WorkerConfig{
		Binary:     c.generatorBinary,
		ConfigPath: filepath.Join(c.fs.TestsDir, "config"),
		Files:      files,
		WorkDir:    artifactDirPath,
		StatusPath: filepath.Join(artifactDirPath, "status.json"),
	}, testID)
	if err != nil {
		return fmt.Errorf("%w: construct generator worker: %v", TankError, err)
	}

	if err := worker.Start(); err != nil {
		return fmt.Errorf("%w: start generator worker: %v", TankError, err)
	}

	job.TankJobID = testID
	job.ArtifactDirPath = artifactDirPath
	c.worker = worker
	c.registerWorkersLocked(job)

	return nil
}

func (c *Client) registerWorkersLocked(job *model.Job) {
	trailQueue := NewDataQueue(0)
	monitoringQueue := NewDataQueue(0)

	c.background = []backgroundWorker{
		newTrailUploader(job.ID, trailQueue, c.client, c.logger),
		newMonitoringUploader(job.ID, monitoringQueue, c.client, c.logger),
	}

	if job.PluginEnabled(model.JobPluginAutostop) {
		imbalanceQueue := NewDataQueue(0)
		c.finalizers = []finalizer{newImbalanceUploader(c.logger, job.ID, imbalanceQueue, c.client)}
	}
}

// RunJob releases the generator to start shooting and starts the
// background uploaders; a no-op if already running.
func (c *Client) RunJob() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker == nil {
		return errors.Wrap(TankError, "trying to run job before prepare stage")
	}
	c.worker.Shoot()
	for _, w := range c.background {
		w.Start()
	}
	return nil
}

// StopJob asks the generator to stop gracefully and waits up to the
// worker timeout for it to exit.
func (c *Client) StopJob() error {
	c.mu.Lock()
	worker := c.worker
	timeout := c.workerTimeout
	c.mu.Unlock()

	if worker == nil || !worker.IsAlive() {
		return nil
	}
	if err := worker.Stop(); err != nil {
		return errors.Wrap(err, "stop generator worker")
	}
	return worker.Wait(timeout)
}

// Finish stops the job if still running, finishes every background
// uploader, runs every finalizer, then clears all internal state.
func (c *Client) Finish() {
	if err := c.StopJob(); err != nil && c.logger != nil {
		c.logger.Warnw("generator did not stop cleanly", "error", err)
	}

	c.mu.Lock()
	background := c.background
	finalizers := c.finalizers
	c.mu.Unlock()

	for _, w := range background {
		w.Finish()
	}
	for _, f := range finalizers {
		f.Run()
	}
	c.cleanup()
}

func (c *Client) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.background {
		w.Stop()
	}
	c.background = nil
	c.finalizers = nil
	if c.worker != nil && c.worker.IsAlive() {
		c.worker.Kill()
	}
	c.worker = nil
}

// IsIdle reports whether the client is neither preparing nor testing.
func (c *Client) IsIdle() bool {
	status := c.GetTankStatus()
	return status != StatusPreparingTest && status != StatusTesting
}

func (c *Client) isTestSessionPreparingLocked() bool {
	return c.worker != nil && c.worker.IsAlive() && c.worker.Status() == GeneratorStatusPreparing
}

func (c *Client) isTestSessionRunningLocked() bool {
	if c.worker != nil && c.worker.IsAlive() {
		return c.worker.Status() != GeneratorStatusFinished
	}
	return isLockHeld(c.fs.LockDir)
}

func (c *Client) isActiveTestLocked(testID string) bool {
	return c.worker != nil && c.worker.TestID() == testID && c.worker.Status() != GeneratorStatusFinished
}

// GetTankStatus derives the tank's own lifecycle phase from the live
// worker, or from a stale lock file if no worker is live in-process.
func (c *Client) GetTankStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.isTestSessionPreparingLocked():
		return StatusPreparingTest
	case c.isTestSessionRunningLocked():
		return StatusTesting
	default:
		return StatusReadyForTest
	}
}

// GetJobStatus reports a job's last known status: derived from the
// live worker if it's still running this job, or from the generator's
// finish_status.yaml otherwise.
func (c *Client) GetJobStatus(jobID string) model.JobStatus {
	c.mu.Lock()
	active := c.isActiveTestLocked(jobID)
	var workerStatus GeneratorStatus
	if active {
		workerStatus = c.worker.Status()
	}
	c.mu.Unlock()

	if active {
		return activeJobStatus(workerStatus)
	}

	testDir := filepath.Join(c.fs.TestsDir, jobID)
	if _, err := os.Stat(testDir); err != nil {
		if c.logger != nil {
			c.logger.Warnw("get job status: test directory not found", "dir", testDir)
		}
		return finishedJobStatus()
	}

	finishFile := filepath.Join(testDir, finishStatusFilename)
	data, err := os.ReadFile(finishFile)
	if err != nil {
		if c.logger != nil {
			c.logger.Warnw("get job status: finish status file not found", "file", finishFile)
		}
		return finishedJobStatus()
	}

	var fs finishStatus
	if err := yaml.Unmarshal(data, &fs); err != nil {
		if c.logger != nil {
			c.logger.Errorw("couldn't parse job status file", "error", err)
		}
		return model.NewJobStatus(model.StatusFailed, "couldn't parse job status file", internalErrorType, nil)
	}
	return parseJobStatus(fs)
}

func activeJobStatus(status GeneratorStatus) model.JobStatus {
	s := "TESTING"
	if status == GeneratorStatusPreparing {
		s = "PREPARING_TEST"
	}
	return model.NewJobStatus(s, "", "", nil)
}

func finishedJobStatus() model.JobStatus {
	zero := 0
	return model.NewJobStatus(model.StatusFinished, "", "", &zero)
}

// isLockHeld reports whether lockDir currently holds a lock file left
// by a live generator process. This is a best-effort check: it only
// asks whether a lock file exists, not whether the pid it might
// record is still alive, since this module doesn't share the
// generator's own lock file format.
func isLockHeld(lockDir string) bool {
	entries, err := os.ReadDir(lockDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			return true
		}
	}
	return false
}
