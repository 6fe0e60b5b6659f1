package ulta

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/model"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
)

// WaitForAJob polls the control plane until a job is available,
// sleeping between empty polls. It returns once claimed, or once a
// graceful or forced cancellation is requested.
func (s *Service) WaitForAJob() (*model.Job, error) {
	var job *model.Job
	err := s.observer.Observe(requestJobStage, state.ObserveOptions{}, func() error {
		for {
			if err := s.cancellation.RaiseOnSet(cancel.Graceful); err != nil {
				return err
			}
			found, err := s.GetJob("")
			if err != nil {
				return err
			}
			if found != nil {
				job = found
				return nil
			}
			time.Sleep(s.sleepTime)
		}
	})
	return job, err
}

// AwaitTankIsReady blocks until the tank is idle, or until timeout (or
// the service's configured max waiting time if timeout is zero)
// elapses, in which case it reports the job as un-runnable.
func (s *Service) AwaitTankIsReady(timeout time.Duration) error {
	if s.tank.IsIdle() {
		return nil
	}
	s.logger.Warnw("there is active testing session, awaiting for finish")
	if timeout <= 0 {
		timeout = s.maxWaitingTime
	}
	deadline := time.Now().Add(timeout)
	for !s.tank.IsIdle() {
		if err := s.cancellation.RaiseOnSet(cancel.Graceful); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return errors.Wrap(tank.TankError, "tank is busy for too long, cancelling job")
		}
		time.Sleep(s.sleepTime)
	}
	return nil
}

// jobDataPaths lists the files a freshly staged job's test data
// directory holds, or nil if it doesn't exist.
func jobDataPaths(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths
}

// ExecuteJob stages a claimed job onto the tank, drives it to
// completion, and always stops and finishes the tank run once done,
// whether the job succeeded, failed, or the run was interrupted.
func (s *Service) ExecuteJob(job *model.Job) (*model.Job, error) {
	err := s.executeJobBody(job)

	s.tank.StopJob()
	s.tank.Finish()

	if err == nil {
		return job, nil
	}

	switch {
	case errors.Is(err, ErrJobStopped):
		claimErr := s.claimJobStatus(job, model.NewJobStatus(model.StatusStopped, "", "", nil))
		return job, claimErr
	case cancel.IsRequest(err):
		s.claimJobFailed(job, "Job execution has been interrupted on agent. "+err.Error(), "INTERRUPTED")
		return job, err
	case isRejected(err):
		s.claimJobFailed(job, "Backend rejected current job: "+err.Error(), "FAILED")
		return job, err
	case errors.Is(err, tank.TankError):
		s.claimJobFailed(job, "Could not run job: "+err.Error(), tank.InternalErrorType)
		return job, err
	default:
		return job, err
	}
}

func (s *Service) executeJobBody(job *model.Job) error {
	if err := s.AwaitTankIsReady(0); err != nil {
		return err
	}

	if err := s.tank.PrepareJob(job, jobDataPaths(job.TestDataDir)); err != nil {
		return err
	}
	s.logger.Infow("prepared job", "job_id", job.ID, "tank_job_id", job.TankJobID)

	s.logger.Infow("waiting for job to finish", "job_id", job.ID)
	if err := s.ServeLTJob(job); err != nil {
		return err
	}
	s.logger.Infow("job finished", "job_id", job.ID, "tank_job_id", job.TankJobID)
	return nil
}

// ServeLTJob polls the job's signal and status once per loop iteration
// until the tank reports it finished, claiming every observed status.
// A transient failure talking to the backend is logged and retried
// rather than abandoning the job.
func (s *Service) ServeLTJob(job *model.Job) error {
	for {
		if err := s.cancellation.RaiseOnSet(cancel.Graceful); err != nil {
			return err
		}

		err := s.observer.Observe(sustainJobStage, state.ObserveOptions{
			Suppress: []func(error) bool{isTransient},
		}, func() error {
			if err := s.ServeLTSignal(job.ID); err != nil {
				return err
			}
			status := s.tank.GetJobStatus(job.TankJobID)
			if status.Finished() {
				s.tank.Finish()
			}
			return s.claimJobStatus(job, status)
		})
		if err != nil {
			return err
		}
		if job.Finished() {
			return nil
		}

		time.Sleep(s.sleepTime)
	}
}

// ServeLTSignal polls the control plane for the action to take on a
// running job and carries it out.
func (s *Service) ServeLTSignal(jobID string) error {
	signal, err := s.client.GetJobSignal(jobID)
	if err != nil {
		return err
	}
	switch signal.Name {
	case "STOP":
		return s.serveStopSignal()
	case "RUN_IN":
		return s.serveRunSignal(signal.RunIn)
	case "WAIT", "SIGNAL_UNSPECIFIED", "":
		return nil
	default:
		return errors.Newf("unknown signal %s returned from server", signal.Name)
	}
}

func (s *Service) serveStopSignal() error {
	s.tank.StopJob()
	return ErrJobStopped
}

func (s *Service) serveRunSignal(runIn time.Duration) error {
	if runIn > s.sleepTime {
		return nil
	}
	if runIn > 0 {
		time.Sleep(runIn)
	}
	return s.tank.RunJob()
}

// PublishArtifacts runs every configured uploader against the job,
// overriding the reported tank status to UPLOADING_ARTIFACTS for the
// duration. A failing uploader is logged and reported as a post-job
// error; it never aborts the remaining uploaders. A nil job (the
// control plane never produced one) is a no-op.
func (s *Service) PublishArtifacts(job *model.Job) {
	if job == nil {
		return
	}
	s.setOverride(tank.StatusUploadingArtifacts)
	defer s.clearOverride()

	for _, nu := range s.uploaders {
		err := nu.Uploader.PublishArtifacts(job)
		if err == nil {
			continue
		}
		if cancel.IsRequest(err) {
			s.claimPostJobError(job, "Artifact uploading has been interrupted: "+err.Error(), "ARTIFACT_UPLOADING_FAILED")
			continue
		}
		s.logger.Errorw("failed to publish artifacts", "uploader", nu.Name, "error", err)
		s.claimPostJobError(job, err.Error(), "ARTIFACT_UPLOADING_FAILED")
	}
}

// ServeSingleJob runs exactly one job to completion, identified by id,
// and returns its terminal result. Unlike Serve, it does not loop
// waiting for new jobs.
func (s *Service) ServeSingleJob(jobID string) (model.JobResult, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return model.JobResult{}, err
	}
	if job == nil {
		return model.JobResult{}, errors.Wrapf(ErrJobNotExecuted, "unable to find cloud job with id %s", jobID)
	}
	if job.ID != jobID {
		return model.JobResult{}, errors.Wrapf(ErrJobNotExecuted, "requested cloud job %s, got: %s", jobID, job.ID)
	}

	job, execErr := s.ExecuteJob(job)
	s.PublishArtifacts(job)
	if execErr != nil {
		return job.Result(), execErr
	}
	return job.Result(), nil
}
