package logging

import (
	"fmt"
	"sort"

	"github.com/ulta-agent/ulta/internal/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sender delivers a batch of log messages to a log group on some resource.
// Implemented by the transport package's logging client.
type Sender interface {
	SendLog(logGroupID string, messages []Message, resourceType, resourceID string) error
}

// Channel distinguishes the two transports LogMessageProcessor can target;
// each has its own batch size and truncation budget.
type Channel struct {
	MaxLabelsBytes   int // 0 means unbounded
	MaxMessageLength int
	MaxBatchSize     int
}

// BackendChannel is the default control-plane log channel.
func BackendChannel(maxChunkSize int) Channel {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	return Channel{MaxLabelsBytes: 8 * 1024, MaxMessageLength: 2000, MaxBatchSize: maxChunkSize}
}

// CloudLogGroupChannel mirrors Yandex Cloud Logging's documented limits.
func CloudLogGroupChannel() Channel {
	return Channel{MaxLabelsBytes: 0, MaxMessageLength: 65536, MaxBatchSize: 100}
}

// LogMessageProcessor is a reporter.Handler that turns raw sink records
// into transport Messages and hands them to a Sender.
type LogMessageProcessor struct {
	sender      Sender
	logGroupID  string
	resourceID  string
	resourceTyp string
	channel     Channel
}

func NewLogMessageProcessor(sender Sender, logGroupID, resourceID, resourceType string, channel Channel) *LogMessageProcessor {
	return &LogMessageProcessor{sender: sender, logGroupID: logGroupID, resourceID: resourceID, resourceTyp: resourceType, channel: channel}
}

func (p *LogMessageProcessor) MaxBatchSize() int { return p.channel.MaxBatchSize }

func (p *LogMessageProcessor) Handle(requestID string, data []any) error {
	messages := make([]Message, 0, len(data))
	for _, item := range data {
		rec, ok := item.(record)
		if !ok {
			continue
		}
		messages = append(messages, p.toMessage(rec))
	}
	return p.sender.SendLog(p.logGroupID, messages, p.resourceTyp, p.resourceID)
}

func (p *LogMessageProcessor) ErrorHandler(err error, logger *zap.SugaredLogger) {
	if logger != nil {
		logger.Warnw("failed to send logs", "log_group_id", p.logGroupID, "error", err)
	}
}

func (p *LogMessageProcessor) toMessage(rec record) Message {
	return Message{
		Message:   util.Truncate(rec.entry.Message, p.channel.MaxMessageLength, true),
		Labels:    p.buildLabels(rec),
		Level:     severityFromZap(rec.entry.Level),
		CreatedAt: rec.createdAt,
	}
}

type labelCandidate struct {
	key   string
	value string
}

func (p *LogMessageProcessor) buildLabels(rec record) map[string]string {
	candidates := make([]labelCandidate, 0, len(rec.labels)+len(rec.fields))
	for k, v := range rec.labels {
		candidates = append(candidates, labelCandidate{k, v})
	}
	for _, f := range rec.fields {
		candidates = append(candidates, labelCandidate{f.Key, fieldToString(f)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].value) < len(candidates[j].value)
	})

	labels := make(map[string]string, len(candidates))
	if p.channel.MaxLabelsBytes <= 0 {
		for _, c := range candidates {
			labels[c.key] = c.value
		}
		return labels
	}

	remaining := p.channel.MaxLabelsBytes
	for _, c := range candidates {
		cost := len(c.key) + len(c.value)
		if cost <= remaining {
			labels[c.key] = c.value
			remaining -= cost
			continue
		}
		if remaining > len(c.key) {
			labels[c.key] = c.value[:remaining-len(c.key)]
		}
		break
	}
	return labels
}

func fieldToString(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.BoolType:
		return fmt.Sprintf("%t", f.Integer == 1)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", f.Integer)
	case zapcore.Float64Type, zapcore.Float32Type:
		return fmt.Sprintf("%v", f.Interface)
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return err.Error()
		}
		return fmt.Sprintf("%v", f.Interface)
	default:
		return fmt.Sprintf("%v", f.Interface)
	}
}
