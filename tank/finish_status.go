package tank

import (
	"github.com/ulta-agent/ulta/model"
)

const internalErrorType = "internal"

// InternalErrorType is the job error type claimed for failures
// attributed to the agent itself rather than to the job's own config or
// test data, shared with the control loop that drives this package.
const InternalErrorType = internalErrorType

// autostopExitCodes are the process exit codes the generator's autostop
// criteria use to signal a deliberate early stop, as opposed to a crash.
// The upstream generator library reserves a fixed range for these; this
// module doesn't vendor that library, so the set is pinned here from its
// documented convention rather than introspected at runtime.
var autostopExitCodes = map[int]struct{}{
	21: {}, 22: {}, 23: {}, 24: {}, 25: {}, 26: {}, 27: {}, 28: {}, 29: {}, 30: {},
}

func isAutostopExitCode(code int) bool {
	_, ok := autostopExitCodes[code]
	return ok
}

// finishStatus is the shape of a generator's finish_status.yaml.
type finishStatus struct {
	Error      string `yaml:"error"`
	TankMsg    string `yaml:"tank_msg"`
	ExitCode   *int   `yaml:"exit_code"`
	StatusCode string `yaml:"status_code"`
}

// extractError derives the (message, type) pair reported alongside a
// finished job's status, preferring an explicit error, then the
// generator's internal message, then a generic message for an
// unexplained non-autostop exit code.
func extractError(fs finishStatus) (message, errType string) {
	if fs.Error != "" {
		return fs.Error, ""
	}
	if fs.TankMsg != "" {
		return fs.TankMsg, internalErrorType
	}
	if fs.ExitCode != nil && *fs.ExitCode != 0 && !isAutostopExitCode(*fs.ExitCode) {
		return "Unknown generator error", ""
	}
	return "", ""
}

// parseJobStatus turns a parsed finish_status.yaml into a JobStatus.
func parseJobStatus(fs finishStatus) model.JobStatus {
	message, errType := extractError(fs)

	var status string
	switch {
	case message != "":
		status = model.StatusFailed
	case fs.ExitCode != nil && isAutostopExitCode(*fs.ExitCode):
		status = model.StatusAutostopped
	case fs.StatusCode != "":
		status = fs.StatusCode
	default:
		status = model.StatusFailed
	}

	return model.NewJobStatus(status, message, errType, fs.ExitCode)
}
