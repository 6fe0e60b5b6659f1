package tank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ulta-agent/ulta/model"
)

func intPtr(n int) *int { return &n }

func TestExtractError_PrefersExplicitError(t *testing.T) {
	msg, typ := extractError(finishStatus{Error: "boom", TankMsg: "ignored"})
	assert.Equal(t, "boom", msg)
	assert.Empty(t, typ)
}

func TestExtractError_FallsBackToTankMsgAsInternal(t *testing.T) {
	msg, typ := extractError(finishStatus{TankMsg: "generator crashed"})
	assert.Equal(t, "generator crashed", msg)
	assert.Equal(t, internalErrorType, typ)
}

func TestExtractError_UnknownForUnrecognizedExitCode(t *testing.T) {
	msg, _ := extractError(finishStatus{ExitCode: intPtr(137)})
	assert.Equal(t, "Unknown generator error", msg)
}

func TestExtractError_SilentForAutostopExitCode(t *testing.T) {
	msg, typ := extractError(finishStatus{ExitCode: intPtr(21)})
	assert.Empty(t, msg)
	assert.Empty(t, typ)
}

func TestParseJobStatus_AutostopExitCode(t *testing.T) {
	status := parseJobStatus(finishStatus{ExitCode: intPtr(22)})
	assert.Equal(t, model.StatusAutostopped, status.Status)
	assert.Equal(t, 22, *status.ExitCode)
}

func TestParseJobStatus_ExplicitErrorIsFailed(t *testing.T) {
	status := parseJobStatus(finishStatus{Error: "oom killed", ExitCode: intPtr(137)})
	assert.Equal(t, model.StatusFailed, status.Status)
	assert.Equal(t, "oom killed", status.Error)
}

func TestParseJobStatus_StatusCodePassedThrough(t *testing.T) {
	status := parseJobStatus(finishStatus{StatusCode: model.StatusStopped})
	assert.Equal(t, model.StatusStopped, status.Status)
}

func TestParseJobStatus_NoInfoDefaultsToFailed(t *testing.T) {
	status := parseJobStatus(finishStatus{})
	assert.Equal(t, model.StatusFailed, status.Status)
}
