package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeSender struct {
	logGroupID string
	messages   []Message
}

func (f *fakeSender) SendLog(logGroupID string, messages []Message, resourceType, resourceID string) error {
	f.logGroupID = logGroupID
	f.messages = messages
	return nil
}

func newRecord(msg string, level zapcore.Level, labels map[string]string, fields ...zapcore.Field) record {
	return record{
		entry:     zapcore.Entry{Message: msg, Level: level, Time: time.Unix(0, 0)},
		fields:    fields,
		labels:    labels,
		createdAt: time.Unix(0, 0),
	}
}

func TestLogMessageProcessor_HandleSendsConvertedMessages(t *testing.T) {
	sender := &fakeSender{}
	p := NewLogMessageProcessor(sender, "group-1", "agent-1", "agent_logs", BackendChannel(0))

	err := p.Handle("req-1", []any{newRecord("hello", zapcore.InfoLevel, map[string]string{"job_id": "1"})})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "hello", sender.messages[0].Message)
	assert.Equal(t, "1", sender.messages[0].Labels["job_id"])
	assert.Equal(t, SeverityInfo, sender.messages[0].Level)
	assert.Equal(t, "group-1", sender.logGroupID)
}

func TestLogMessageProcessor_MessageTruncatedInMiddle(t *testing.T) {
	sender := &fakeSender{}
	p := NewLogMessageProcessor(sender, "group-1", "agent-1", "agent_logs", BackendChannel(0))

	long := strings.Repeat("x", 3000)
	require.NoError(t, p.Handle("req", []any{newRecord(long, zapcore.InfoLevel, nil)}))
	require.Len(t, sender.messages, 1)
	assert.Len(t, []rune(sender.messages[0].Message), 2000)
	assert.Contains(t, sender.messages[0].Message, "...")
}

func TestLogMessageProcessor_LabelBudgetTruncatesSmallestFirst(t *testing.T) {
	sender := &fakeSender{}
	channel := Channel{MaxLabelsBytes: 10, MaxMessageLength: 2000, MaxBatchSize: 10}
	p := NewLogMessageProcessor(sender, "group-1", "agent-1", "agent_logs", channel)

	labels := map[string]string{"a": "1", "big": strings.Repeat("y", 50)}
	require.NoError(t, p.Handle("req", []any{newRecord("msg", zapcore.InfoLevel, labels)}))

	got := sender.messages[0].Labels
	assert.Equal(t, "1", got["a"], "the smallest label should survive intact")
	if v, ok := got["big"]; ok {
		assert.Less(t, len(v), 50, "an oversized label must be cut down to the remaining budget")
	}
}

func TestLogMessageProcessor_CloudChannelLabelsUnbounded(t *testing.T) {
	sender := &fakeSender{}
	p := NewLogMessageProcessor(sender, "group-1", "agent-1", "agent_logs", CloudLogGroupChannel())
	assert.Equal(t, 100, p.MaxBatchSize())

	big := strings.Repeat("z", 20_000)
	require.NoError(t, p.Handle("req", []any{newRecord("msg", zapcore.InfoLevel, map[string]string{"payload": big})}))
	assert.Equal(t, big, sender.messages[0].Labels["payload"])
}

func TestFieldToString(t *testing.T) {
	assert.Equal(t, "5", fieldToString(zap.Int("n", 5)))
	assert.Equal(t, "true", fieldToString(zap.Bool("b", true)))
	assert.Equal(t, "v", fieldToString(zap.String("s", "v")))
}
