// Package reporter batches and periodically flushes telemetry (status
// updates, log lines, trail records) collected from in-process queues
// to one or more destination handlers, retrying failed handlers with
// exponential backoff and bounded retention of unsent data.
package reporter

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler receives chopped batches from a Reporter's sources.
type Handler interface {
	// Handle delivers a batch of data under the given idempotency id.
	Handle(requestID string, data []any) error
	// ErrorHandler is invoked with whatever Handle returned this cycle:
	// the single error, or a *CompositeError if more than one batch
	// failed.
	ErrorHandler(err error, logger *zap.SugaredLogger)
	// MaxBatchSize bounds how many items Handle receives at once. <= 0
	// means unbounded.
	MaxBatchSize() int
}

// Config controls a Reporter's batching and retry behavior.
type Config struct {
	RetentionPeriod       time.Duration
	ReportInterval        time.Duration
	MaxUnsentSize         int
	UseExponentialBackoff bool
}

// DefaultConfig matches the reference agent's defaults.
func DefaultConfig() Config {
	return Config{
		RetentionPeriod: time.Hour,
		ReportInterval:  5 * time.Second,
		MaxUnsentSize:   1000,
	}
}

type unsentMessage struct {
	ts   time.Time
	data any
}

type handlerState struct {
	handler Handler
	attempt attemptManager
	unsent  []unsentMessage
}

// Reporter drains its sources on an interval and flushes the collected
// records to every registered handler, retaining anything a handler
// fails to accept until the next successful attempt or until it ages
// out of the retention window.
type Reporter struct {
	sources []*Source
	states  []*handlerState
	cfg     Config
	logger  *zap.SugaredLogger
}

// New builds a Reporter over the given handlers and optional initial
// sources.
func New(logger *zap.SugaredLogger, handlers []Handler, cfg Config, sources ...*Source) *Reporter {
	if cfg.RetentionPeriod <= 0 {
		cfg.RetentionPeriod = time.Hour
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 5 * time.Second
	}
	if cfg.MaxUnsentSize <= 0 {
		cfg.MaxUnsentSize = 1000
	}

	states := make([]*handlerState, len(handlers))
	for i, h := range handlers {
		var am attemptManager
		if cfg.UseExponentialBackoff {
			am = newExponentialAttemptManager()
		} else {
			am = dummyAttemptManager{}
		}
		states[i] = &handlerState{handler: h, attempt: am}
	}

	return &Reporter{
		sources: append([]*Source{}, sources...),
		states:  states,
		cfg:     cfg,
		logger:  logger,
	}
}

// AddSources registers additional queues to be drained on future
// report cycles.
func (r *Reporter) AddSources(sources ...*Source) {
	r.sources = append(r.sources, sources...)
}

// Run drains and flushes on cfg.ReportInterval until ctx is canceled,
// then performs one final forced flush before returning. Run blocks;
// callers start it in its own goroutine and cancel ctx to stop it,
// mirroring the reference agent's background-thread-plus-stop-event
// idiom without needing a dedicated stop channel.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.Report(true); err != nil {
				r.logger.Errorw("failed to report on shutdown", "error", err)
			}
			return
		case <-ticker.C:
			r.reportCatchingPanic()
		}
	}
}

func (r *Reporter) reportCatchingPanic() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("unhandled error occurred in reporter loop", "panic", rec)
		}
	}()
	if err := r.Report(false); err != nil {
		r.logger.Errorw("unhandled error occurred in reporter loop", "error", err)
	}
}

// Report drains every source once and flushes the combined records to
// every handler. If force is false, a handler still in backoff has its
// records appended to its unsent retention list instead of being sent.
func (r *Reporter) Report(force bool) error {
	records := r.collectNewMessages()

	for _, st := range r.states {
		if !force && !st.attempt.canAttempt() {
			r.putUnsent(st, records)
			continue
		}

		pending := append(r.releaseUnsent(st), records...)
		sort.Slice(pending, func(i, j int) bool { return pending[i].ts.Before(pending[j].ts) })

		msgChunks := chop(pending, st.handler.MaxBatchSize())

		var errs []error
		for _, msgChunk := range msgChunks {
			if len(msgChunk) == 0 {
				continue
			}
			data := make([]any, len(msgChunk))
			for i, m := range msgChunk {
				data[i] = m.data
			}
			if err := st.handler.Handle(uuid.NewString(), data); err != nil {
				r.putUnsent(st, msgChunk)
				errs = append(errs, err)
			}
		}

		st.attempt.record(len(errs) == len(msgChunks) && len(msgChunks) > 0)

		switch len(errs) {
		case 0:
		case 1:
			st.handler.ErrorHandler(errs[0], r.logger)
		default:
			st.handler.ErrorHandler(&CompositeError{Errors: errs}, r.logger)
		}
	}
	return nil
}

func (r *Reporter) collectNewMessages() []unsentMessage {
	var records []unsentMessage
	now := time.Now()
	for _, src := range r.sources {
		for _, item := range src.Drain() {
			records = append(records, unsentMessage{ts: now, data: item})
		}
	}
	return records
}

// putUnsent appends msgs to st's retention buffer, evicting the oldest
// entries first if that would exceed cfg.MaxUnsentSize, mirroring a
// bounded deque.
func (r *Reporter) putUnsent(st *handlerState, msgs []unsentMessage) {
	st.unsent = append(st.unsent, msgs...)
	if over := len(st.unsent) - r.cfg.MaxUnsentSize; over > 0 {
		st.unsent = st.unsent[over:]
	}
}

func (r *Reporter) releaseUnsent(st *handlerState) []unsentMessage {
	cutoff := time.Now().Add(-r.cfg.RetentionPeriod)
	kept := st.unsent[:0]
	for _, m := range st.unsent {
		if m.ts.After(cutoff) || m.ts.Equal(cutoff) {
			kept = append(kept, m)
		}
	}
	out := append([]unsentMessage{}, kept...)
	st.unsent = nil
	return out
}
