package logging

import (
	"time"

	"github.com/ulta-agent/ulta/reporter"
	"go.uber.org/zap/zapcore"
)

// record is what SinkCore puts on the queue: the raw entry plus whatever
// structured fields and ambient labels were active when it was emitted.
type record struct {
	entry     zapcore.Entry
	fields    []zapcore.Field
	labels    map[string]string
	createdAt time.Time
}

// SinkCore is a zapcore.Core that captures every record it sees into a
// bounded queue (a reporter.Source) instead of writing it anywhere itself,
// stamping each record with whatever LabelContext scope is active at emit
// time. It never blocks or drops loudly: once the queue is saturated the
// oldest entry is evicted, same as every other Reporter source.
type SinkCore struct {
	zapcore.LevelEnabler
	queue  *reporter.Source
	labels *LabelContext
	with   []zapcore.Field
}

// NewSinkCore attaches to queue, stamping records with labels' active scope.
// The queue's own capacity (set when the Source was built) bounds how many
// records it retains before evicting the oldest.
func NewSinkCore(queue *reporter.Source, labels *LabelContext, level zapcore.LevelEnabler) *SinkCore {
	return &SinkCore{LevelEnabler: level, queue: queue, labels: labels}
}

func (c *SinkCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.with)+len(fields))
	merged = append(merged, c.with...)
	merged = append(merged, fields...)
	return &SinkCore{LevelEnabler: c.LevelEnabler, queue: c.queue, labels: c.labels, with: merged}
}

func (c *SinkCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *SinkCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.with)+len(fields))
	all = append(all, c.with...)
	all = append(all, fields...)

	var labels map[string]string
	if c.labels != nil {
		labels = c.labels.Labels()
	}

	c.queue.Put(record{entry: entry, fields: all, labels: labels, createdAt: entry.Time})
	return nil
}

func (c *SinkCore) Sync() error { return nil }
