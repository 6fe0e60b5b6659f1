// Package admin hosts the agent's local control surface: a periodic
// filesystem healthcheck loop and a small HTTP API for liveness probes
// and graceful shutdown, bound only to loopback interfaces.
package admin

import (
	"time"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/state"
	"go.uber.org/zap"
)

const defaultHealthcheckInterval = 30 * time.Second

const healthcheckStage = "healthcheck"

// HealthCheckProtocol is implemented by anything the healthcheck loop
// should probe on each tick. It records its own findings against State
// rather than returning an error, matching fsmanager.FileSystemObserver.
type HealthCheckProtocol interface {
	Healthcheck()
}

// HealthCheckFunc adapts a plain function to HealthCheckProtocol.
type HealthCheckFunc func()

func (f HealthCheckFunc) Healthcheck() { f() }

// Healthchecker runs every registered HealthCheckProtocol on a fixed
// interval until the cancellation signal reaches Graceful.
type Healthchecker struct {
	logger       *zap.SugaredLogger
	observer     *state.Observer
	cancellation *cancel.Cancellation
	interval     time.Duration
	checks       []HealthCheckProtocol
}

// NewHealthchecker builds a Healthchecker. interval falls back to 30s
// when non-positive.
func NewHealthchecker(logger *zap.SugaredLogger, serviceState *state.State, cancellation *cancel.Cancellation, interval time.Duration, checks ...HealthCheckProtocol) *Healthchecker {
	if interval <= 0 {
		interval = defaultHealthcheckInterval
	}
	return &Healthchecker{
		logger:       logger,
		observer:     state.NewObserver(serviceState, logger, cancellation),
		cancellation: cancellation,
		interval:     interval,
		checks:       checks,
	}
}

// Run probes every registered check once per interval until a graceful
// or forced cancellation is requested.
func (h *Healthchecker) Run() {
	for !h.cancellation.IsSet(cancel.Graceful) {
		h.runOnce()
		time.Sleep(h.interval)
	}
}

func (h *Healthchecker) runOnce() {
	for _, check := range h.checks {
		c := check
		_ = h.observer.Observe(healthcheckStage, state.ObserveOptions{}, func() error {
			c.Healthcheck()
			return nil
		})
	}
}
