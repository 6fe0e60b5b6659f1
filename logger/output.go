package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints
//	1 (-v)      - + Progress, startup info, registration status, job lifecycle
//	2 (-vv)     - + Reporter flushes, config loaded, control-plane requests
//	3 (-vvv)    - + Generator stdout/stderr, gRPC calls, internal flow
//	4 (-vvvv)   - + Full request/response bodies, finish_status dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Job results, command output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress        // Progress indicators (e.g., job lifecycle transitions)
	OutputStartup         // Startup banners, config summary
	OutputRegistration    // Agent registration/identity status
	OutputJobLifecycle    // Job claimed/started/finished events
	OutputArtifactUpload  // Artifact upload summaries

	// Level 2 (-vv) - Detailed
	OutputReporterFlush     // Reporter batch send attempts and retries
	OutputConfig            // Config values loaded/applied
	OutputControlPlaneCalls // Outgoing control-plane RPC names
	OutputControlPlaneStatus // Control-plane RPC status codes
	OutputFilesystemStats   // Disk usage and cleanup summaries

	// Level 3 (-vvv) - Debug
	OutputGeneratorStdout // Generator subprocess stdout
	OutputGeneratorStderr // Generator subprocess stderr
	OutputGRPCMethod      // gRPC method calls (method name, timing)
	OutputGRPCStatus      // gRPC response status
	OutputInternalFlow    // Internal operation flow (function entry/exit)

	// Level 4 (-vvvv) - Full dump
	OutputFinishStatusDump // Full finish_status.yaml contents
	OutputGRPCBody         // Full gRPC request/response bodies
	OutputDataDump         // Full data structure contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	// Level 0 - Always shown
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	// Level 1 - Informational
	OutputProgress:       VerbosityInfo,
	OutputStartup:        VerbosityInfo,
	OutputRegistration:   VerbosityInfo,
	OutputJobLifecycle:   VerbosityInfo,
	OutputArtifactUpload: VerbosityInfo,

	// Level 2 - Detailed
	OutputReporterFlush:      VerbosityDebug,
	OutputConfig:             VerbosityDebug,
	OutputControlPlaneCalls:  VerbosityDebug,
	OutputControlPlaneStatus: VerbosityDebug,
	OutputFilesystemStats:    VerbosityDebug,

	// Level 3 - Debug
	OutputGeneratorStdout: VerbosityTrace,
	OutputGeneratorStderr: VerbosityTrace,
	OutputGRPCMethod:      VerbosityTrace,
	OutputGRPCStatus:      VerbosityTrace,
	OutputInternalFlow:    VerbosityTrace,

	// Level 4 - Full dump
	OutputFinishStatusDump: VerbosityAll,
	OutputGRPCBody:         VerbosityAll,
	OutputDataDump:         VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:             "results",
	OutputErrors:              "errors",
	OutputUserStatus:          "status",
	OutputProgress:            "progress",
	OutputStartup:             "startup",
	OutputRegistration:        "registration",
	OutputJobLifecycle:        "job-lifecycle",
	OutputArtifactUpload:      "artifact-upload",
	OutputReporterFlush:       "reporter-flush",
	OutputConfig:              "config",
	OutputControlPlaneCalls:   "control-plane-calls",
	OutputControlPlaneStatus:  "control-plane-status",
	OutputFilesystemStats:     "filesystem-stats",
	OutputGeneratorStdout:     "generator-stdout",
	OutputGeneratorStderr:     "generator-stderr",
	OutputGRPCMethod:          "grpc-method",
	OutputGRPCStatus:          "grpc-status",
	OutputInternalFlow:        "internal-flow",
	OutputFinishStatusDump:    "finish-status-dump",
	OutputGRPCBody:            "grpc-body",
	OutputDataDump:            "data-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, job lifecycle"
	case VerbosityDebug:
		return "above + reporter flushes, config, control-plane calls"
	case VerbosityTrace:
		return "above + generator logs, gRPC calls"
	case VerbosityAll:
		return "above + finish_status dumps, full bodies"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// Generator output helpers

// ShouldShowGeneratorStdout returns true if generator stdout should be forwarded
func ShouldShowGeneratorStdout(verbosity int) bool {
	return ShouldOutput(verbosity, OutputGeneratorStdout)
}

// ShouldShowGeneratorStderr returns true if generator stderr should be forwarded
func ShouldShowGeneratorStderr(verbosity int) bool {
	return ShouldOutput(verbosity, OutputGeneratorStderr)
}

// ShouldShowFinishStatusDump returns true if the full finish_status.yaml
// contents should be logged
func ShouldShowFinishStatusDump(verbosity int) bool {
	return ShouldOutput(verbosity, OutputFinishStatusDump)
}

// Timing helpers

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true // Always show slow operations
	}
	return ShouldOutput(verbosity, OutputReporterFlush)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation)
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}
