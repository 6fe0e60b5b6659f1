// Package logging captures process log records into a bounded in-process
// sink and converts them into batched transport messages for the control
// plane and the cloud log group.
package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Severity mirrors the transport-level log levels the backend understands.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

func severityFromZap(level zapcore.Level) Severity {
	switch {
	case level < zapcore.InfoLevel:
		return SeverityDebug
	case level < zapcore.WarnLevel:
		return SeverityInfo
	case level < zapcore.ErrorLevel:
		return SeverityWarning
	case level < zapcore.FatalLevel:
		return SeverityError
	default:
		return SeverityFatal
	}
}

// Message is a single log record ready for transport.
type Message struct {
	Message   string
	Labels    map[string]string
	Level     Severity
	CreatedAt time.Time
}
