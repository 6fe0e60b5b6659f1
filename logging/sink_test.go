package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/reporter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSinkCore_CapturesRecordWithActiveLabels(t *testing.T) {
	queue := reporter.NewSource(10)
	labels := NewLabelContext()
	core := NewSinkCore(queue, labels, zapcore.InfoLevel)

	restore := labels.EnterLabels(map[string]string{"job_id": "42"})
	defer restore()

	logger := zap.New(core)
	logger.Info("hello", zap.String("extra", "value"))

	items := queue.Drain()
	require.Len(t, items, 1)
	rec, ok := items[0].(record)
	require.True(t, ok)
	assert.Equal(t, "hello", rec.entry.Message)
	assert.Equal(t, "42", rec.labels["job_id"])
	require.Len(t, rec.fields, 1)
	assert.Equal(t, "extra", rec.fields[0].Key)
}

func TestSinkCore_RespectsLevelEnabler(t *testing.T) {
	queue := reporter.NewSource(10)
	core := NewSinkCore(queue, nil, zapcore.WarnLevel)
	logger := zap.New(core)

	logger.Info("below threshold")
	assert.Empty(t, queue.Drain())

	logger.Warn("at threshold")
	assert.Len(t, queue.Drain(), 1)
}

func TestSinkCore_WithAddsPersistentFields(t *testing.T) {
	queue := reporter.NewSource(10)
	core := NewSinkCore(queue, nil, zapcore.InfoLevel).With([]zapcore.Field{zap.String("component", "tank")})
	logger := zap.New(core)

	logger.Info("msg")
	items := queue.Drain()
	require.Len(t, items, 1)
	rec := items[0].(record)
	require.Len(t, rec.fields, 1)
	assert.Equal(t, "component", rec.fields[0].Key)
}
