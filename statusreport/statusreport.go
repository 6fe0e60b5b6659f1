// Package statusreport periodically pushes the tank's derived status
// to the control plane, and escalates to a forced shutdown when the
// backend stops recognizing this agent.
package statusreport

import (
	"context"
	"time"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/internal/util"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
	"go.uber.org/zap"
)

// maxStatusMessageLen bounds the message sent alongside a claimed tank
// status; the backend rejects overlong payloads.
const maxStatusMessageLen = 8000

// shutdownMessage is reported to the cancellation signal when the
// backend no longer recognizes this agent, e.g. because it was
// deleted or the service account lost its role.
const shutdownMessage = "The backend doesn't know this agent: agent has been deleted or account is missing loadtesting.generatorClient role."

const defaultReportInterval = time.Second

// TankStatusProvider is the subset of tank.Client this package reads.
type TankStatusProvider interface {
	GetTankStatus() tank.Status
}

// Client claims the agent's current status with the control plane.
// Implemented by the transport package.
type Client interface {
	ClaimTankStatus(status, message string) error
}

// unauthorizedError is implemented by transport errors that mean the
// backend has stopped recognizing this agent (deleted, or missing the
// required role) as opposed to a merely transient failure.
type unauthorizedError interface {
	error
	AgentUnrecognized() bool
}

func isAgentUnrecognized(err error) bool {
	var ue unauthorizedError
	return errors.As(err, &ue) && ue.AgentUnrecognized()
}

// Reporter periodically reports the tank's derived status, folding in
// the service's current error state when the tank is otherwise idle.
type Reporter struct {
	logger         *zap.SugaredLogger
	tank           TankStatusProvider
	client         Client
	cancellation   *cancel.Cancellation
	serviceState   *state.State
	reportInterval time.Duration
}

// New builds a Reporter. reportInterval is floored at one second, to
// match the minimum report cadence.
func New(logger *zap.SugaredLogger, tankClient TankStatusProvider, client Client, cancellation *cancel.Cancellation, serviceState *state.State, reportInterval time.Duration) *Reporter {
	if reportInterval < defaultReportInterval {
		reportInterval = defaultReportInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reporter{
		logger:         logger,
		tank:           tankClient,
		client:         client,
		cancellation:   cancellation,
		serviceState:   serviceState,
		reportInterval: reportInterval,
	}
}

// ReportTankStatus claims the tank's current status, or its override
// to ERROR (with the service state's summary message) if the tank is
// idle but the service has an active error.
func (r *Reporter) ReportTankStatus() {
	status := r.tank.GetTankStatus()
	message := ""
	if tank.IdleStatuses[status] && !r.serviceState.Ok() {
		status = tank.StatusError
		message = util.Truncate(r.serviceState.GetSummaryMessage(), maxStatusMessageLen, true)
	}
	if err := r.client.ClaimTankStatus(status.String(), message); err != nil {
		if isAgentUnrecognized(err) {
			r.logger.Errorw("backend doesn't recognize this agent, performing shutdown", "error", err)
			r.cancellation.Notify(shutdownMessage, cancel.Forced)
			return
		}
		r.logger.Errorw("failed to report agent status", "error", err)
	}
}

// Run reports on reportInterval until ctx is canceled, then reports a
// final STOPPED status before returning.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.client.ClaimTankStatus(tank.StatusStopped.String(), util.Truncate(r.cancellation.Explain(), maxStatusMessageLen, true)); err != nil {
				r.logger.Errorw("failed to report STOPPED status", "error", err)
			}
			return
		case <-ticker.C:
			r.ReportTankStatus()
		}
	}
}
