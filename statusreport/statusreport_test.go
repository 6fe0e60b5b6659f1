package statusreport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
)

type fakeTankStatusProvider struct {
	status tank.Status
}

func (p *fakeTankStatusProvider) GetTankStatus() tank.Status { return p.status }

type unrecognizedErr struct{}

func (unrecognizedErr) Error() string          { return "unauthenticated" }
func (unrecognizedErr) AgentUnrecognized() bool { return true }

type transientErr struct{}

func (transientErr) Error() string { return "timeout" }

type fakeStatusClient struct {
	calls    []string
	messages []string
	err      error
}

func (c *fakeStatusClient) ClaimTankStatus(status, message string) error {
	c.calls = append(c.calls, status)
	c.messages = append(c.messages, message)
	return c.err
}

func TestReporter_ReportsTankStatusDirectlyWhenOk(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusTesting}
	client := &fakeStatusClient{}
	r := New(nil, tankProvider, client, cancel.New(), state.New(), time.Second)

	r.ReportTankStatus()
	assert.Equal(t, []string{"TESTING"}, client.calls)
}

func TestReporter_OverridesToErrorWhenIdleAndServiceNotOk(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusReadyForTest}
	client := &fakeStatusClient{}
	st := state.New()
	st.Error("healthcheck", assertError("disk full"))

	r := New(nil, tankProvider, client, cancel.New(), st, time.Second)
	r.ReportTankStatus()

	assert.Equal(t, []string{"ERROR"}, client.calls)
	assert.Equal(t, "disk full", client.messages[0])
}

func TestReporter_TestingStatusIgnoresServiceError(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusTesting}
	client := &fakeStatusClient{}
	st := state.New()
	st.Error("healthcheck", assertError("disk full"))

	r := New(nil, tankProvider, client, cancel.New(), st, time.Second)
	r.ReportTankStatus()

	assert.Equal(t, []string{"TESTING"}, client.calls)
}

func TestReporter_TruncatesOverlongErrorMessage(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusReadyForTest}
	client := &fakeStatusClient{}
	st := state.New()
	st.Error("healthcheck", assertError(strings.Repeat("x", 9000)))

	r := New(nil, tankProvider, client, cancel.New(), st, time.Second)
	r.ReportTankStatus()

	assert.Equal(t, []string{"ERROR"}, client.calls)
	assert.Len(t, client.messages[0], maxStatusMessageLen)
}

func TestReporter_AgentUnrecognizedTriggersForcedCancellation(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusTesting}
	client := &fakeStatusClient{err: unrecognizedErr{}}
	c := cancel.New()

	r := New(nil, tankProvider, client, c, state.New(), time.Second)
	r.ReportTankStatus()

	assert.True(t, c.IsSet(cancel.Forced))
	assert.Equal(t, shutdownMessage, c.Explain())
}

func TestReporter_TransientErrorDoesNotCancel(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusTesting}
	client := &fakeStatusClient{err: transientErr{}}
	c := cancel.New()

	r := New(nil, tankProvider, client, c, state.New(), time.Second)
	r.ReportTankStatus()

	assert.False(t, c.IsSet(cancel.Graceful))
}

func TestReporter_RunReportsFinalStoppedStatusOnCancel(t *testing.T) {
	tankProvider := &fakeTankStatusProvider{status: tank.StatusTesting}
	client := &fakeStatusClient{}
	c := cancel.New()
	c.NotifyGraceful("shutting down")

	r := New(nil, tankProvider, client, c, state.New(), time.Second)
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()
	r.Run(ctx)

	assert.Equal(t, []string{"STOPPED"}, client.calls)
	assert.Equal(t, "shutting down", client.messages[0])
}

type assertError string

func (e assertError) Error() string { return string(e) }
