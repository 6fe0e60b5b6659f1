package ulta

import (
	"sync"
	"time"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
	"go.uber.org/zap"
)

const (
	defaultMaxWaitingTime = 300 * time.Second
	defaultAwaitTimeout   = 60 * time.Second
	defaultSleepTime      = time.Second
)

// requestJobStage and sustainJobStage name the Observer scopes this
// package runs its two retryable loop bodies under.
const (
	requestJobStage = "request new test from backend"
	sustainJobStage = "sustain job"
)

// Service drives the agent's main loop: wait for a job, prepare and run
// it against the tank, report its status until it finishes, and publish
// its artifacts.
type Service struct {
	logger       *zap.SugaredLogger
	client       LoadtestingClient
	tank         TankClient
	store        ObjectStore
	uploaders    []NamedUploader
	cancellation *cancel.Cancellation
	observer     *state.Observer

	workDir        string
	sleepTime      time.Duration
	maxWaitingTime time.Duration

	overrideMu sync.Mutex
	override   *tank.Status
}

// NewService builds a Service. sleepTime and maxWaitingTime fall back to
// their defaults when non-positive.
func NewService(
	logger *zap.SugaredLogger,
	client LoadtestingClient,
	tankClient TankClient,
	store ObjectStore,
	workDir string,
	sleepTime time.Duration,
	uploaders []NamedUploader,
	cancellation *cancel.Cancellation,
	serviceState *state.State,
	maxWaitingTime time.Duration,
) *Service {
	if sleepTime <= 0 {
		sleepTime = defaultSleepTime
	}
	if maxWaitingTime <= 0 {
		maxWaitingTime = defaultMaxWaitingTime
	}
	return &Service{
		logger:         logger,
		client:         client,
		tank:           tankClient,
		store:          store,
		uploaders:      uploaders,
		cancellation:   cancellation,
		observer:       state.NewObserver(serviceState, logger, cancellation),
		workDir:        workDir,
		sleepTime:      sleepTime,
		maxWaitingTime: maxWaitingTime,
	}
}

// GetTankStatus satisfies statusreport.TankStatusProvider: the publish
// phase's UPLOADING_ARTIFACTS status overrides whatever the tank itself
// reports, since the tank is idle again by the time artifacts upload.
func (s *Service) GetTankStatus() tank.Status {
	if st := s.currentOverride(); st != nil {
		return *st
	}
	return s.tank.GetTankStatus()
}

func (s *Service) currentOverride() *tank.Status {
	s.overrideMu.Lock()
	defer s.overrideMu.Unlock()
	return s.override
}

func (s *Service) setOverride(st tank.Status) {
	s.overrideMu.Lock()
	s.override = &st
	s.overrideMu.Unlock()
}

func (s *Service) clearOverride() {
	s.overrideMu.Lock()
	s.override = nil
	s.overrideMu.Unlock()
}

// Serve polls for jobs and runs them, one at a time, until the
// cancellation signal reaches at least Graceful. A single iteration's
// failure (other than the cancellation itself) is logged and the loop
// keeps going.
func (s *Service) Serve() {
	for !s.cancellation.IsSet(cancel.Graceful) {
		s.sustainService(func() error {
			job, err := s.WaitForAJob()
			if err != nil {
				return err
			}
			job, err = s.ExecuteJob(job)
			s.PublishArtifacts(job)
			return err
		})
		time.Sleep(s.sleepTime)
	}
}

func (s *Service) sustainService(fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	if cancel.IsRequest(err) {
		s.logger.Infow("received interrupt signal")
		return
	}
	s.logger.Errorw("unhandled exception occurred, abandoning pending job", "error", err)
}
