package model

import "strconv"

// Status string constants used across both the agent's own terminal
// statuses and the tank's native test-phase statuses.
const (
	StatusUnspecified = "JOB_STATUS_UNSPECIFIED"
	StatusStopped     = "STOPPED"
	StatusFailed      = "FAILED"
	StatusAutostopped = "AUTOSTOPPED"
	StatusFinished    = "FINISHED"
)

// finishedExitCodes maps every status considered "finished" to the
// exit code implied by reaching that status with no explicit exit code
// reported.
var finishedExitCodes = map[string]int{
	StatusAutostopped: 20,
	StatusFailed:      1,
	StatusFinished:    0,
	StatusStopped:     0,
}

// JobStatus is the last known status of a running or finished job,
// combined from tank-reported phases and agent-detected terminal states.
type JobStatus struct {
	Status    string
	Error     string
	ErrorType string
	ExitCode  *int
}

// NewJobStatus builds a JobStatus from an already-parsed exit code. A nil
// exitCode with a recognized finished status falls back to that status's
// implied exit code, the same rule NewJobStatusFromRawExitCode applies to
// an empty raw string.
func NewJobStatus(status, errMsg, errType string, exitCode *int) JobStatus {
	if exitCode == nil {
		if code, ok := finishedExitCodes[status]; ok {
			exitCode = &code
		}
	}
	return JobStatus{
		Status:    status,
		Error:     errMsg,
		ErrorType: errType,
		ExitCode:  exitCode,
	}
}

// NewJobStatusFromRawExitCode interprets exitCode the way the tank's
// finish_status.yaml reports it: digits parse as an int; anything else
// that fails to parse is treated as a generic failure (exit code 1);
// an empty string with a recognized finished status falls back to that
// status's implied exit code.
func NewJobStatusFromRawExitCode(status, errMsg, errType, rawExitCode string) JobStatus {
	var exitCode *int
	switch {
	case rawExitCode != "":
		if n, err := strconv.Atoi(rawExitCode); err == nil {
			exitCode = &n
		} else {
			one := 1
			exitCode = &one
		}
	default:
		if code, ok := finishedExitCodes[status]; ok {
			exitCode = &code
		}
	}
	return JobStatus{Status: status, Error: errMsg, ErrorType: errType, ExitCode: exitCode}
}

// Finished reports whether this status is a terminal job status.
func (s JobStatus) Finished() bool {
	_, ok := finishedExitCodes[s.Status]
	return ok
}

// JobResult is the minimal (status, exit code) summary reported back
// for a completed job.
type JobResult struct {
	Status   string
	ExitCode int
}

// Result reduces a JobStatus to the JobResult reported to the control
// plane; a nil ExitCode is reported as zero.
func (s JobStatus) Result() JobResult {
	exitCode := 0
	if s.ExitCode != nil {
		exitCode = *s.ExitCode
	}
	return JobResult{Status: s.Status, ExitCode: exitCode}
}
