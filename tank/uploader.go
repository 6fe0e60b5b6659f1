package tank

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ulta-agent/ulta/reporter"
	"go.uber.org/zap"
)

const (
	defaultAPIAttempts = 10
	defaultAPITimeout  = 5 * time.Second
	uploaderPollPeriod = time.Second
)

// retryableError is implemented by transport errors that are worth
// retrying (service unavailable, gateway timeout, too many requests)
// as opposed to ones that mean the request itself was bad.
type retryableError interface {
	error
	Retryable() bool
}

func isRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re) && re.Retryable()
}

// DataQueue is the producer side of an uploader's backlog: a job's
// generator plugin pushes raw trail or monitoring entries here, then
// calls Close once it has no more to send.
type DataQueue struct {
	src    *reporter.Source
	closed atomic.Bool
}

// NewDataQueue returns a DataQueue retaining at most maxSize entries
// before dropping the oldest; maxSize <= 0 means unbounded.
func NewDataQueue(maxSize int) *DataQueue {
	return &DataQueue{src: reporter.NewSource(maxSize)}
}

// Put enqueues an entry. A no-op once the queue has been closed.
func (q *DataQueue) Put(item any) {
	if q.closed.Load() {
		return
	}
	q.src.Put(item)
}

// Close marks the queue as done: no further entries are expected once
// it drains empty.
func (q *DataQueue) Close() {
	q.closed.Store(true)
}

func (q *DataQueue) isClosed() bool {
	return q.closed.Load()
}

// Drain removes and returns every currently queued entry.
func (q *DataQueue) Drain() []any {
	return q.src.Drain()
}

// dataUploader is a background worker draining a DataQueue and
// forwarding each entry to the backend, retrying transient failures a
// bounded number of times before giving up on the whole queue.
type dataUploader struct {
	name   string
	jobID  string
	queue  *DataQueue
	logger *zap.SugaredLogger

	apiAttempts int
	apiTimeout  time.Duration

	prepare func(item any) any
	send    func(jobID string, data any) error

	interrupted atomic.Bool
	finished    chan struct{}
	stopOnce    sync.Once
	startOnce   sync.Once
}

func newDataUploader(name, jobID string, queue *DataQueue, logger *zap.SugaredLogger, prepare func(any) any, send func(string, any) error) *dataUploader {
	return &dataUploader{
		name:        name,
		jobID:       jobID,
		queue:       queue,
		logger:      logger,
		apiAttempts: defaultAPIAttempts,
		apiTimeout:  defaultAPITimeout,
		prepare:     prepare,
		send:        send,
		finished:    make(chan struct{}),
	}
}

// Start launches the background drain loop. Safe to call once; later
// calls are no-ops, mirroring a worker that refuses to restart after
// it has already finished.
func (u *dataUploader) Start() {
	u.startOnce.Do(func() {
		go u.run()
	})
}

// Stop signals the drain loop to abandon whatever is left in the
// queue as soon as it next checks.
func (u *dataUploader) Stop() {
	u.stopOnce.Do(func() {
		u.interrupted.Store(true)
	})
}

// Finish waits for a graceful drain, then forces a stop if the queue
// hasn't emptied within the combined retry budget.
func (u *dataUploader) Finish() {
	graceful := time.Duration(u.apiAttempts) * u.apiTimeout
	select {
	case <-u.finished:
		return
	case <-time.After(graceful):
	}

	select {
	case <-u.finished:
	default:
		u.Stop()
		select {
		case <-u.finished:
		case <-time.After(u.apiTimeout):
		}
	}
}

func (u *dataUploader) run() {
	defer close(u.finished)

	ticker := time.NewTicker(uploaderPollPeriod)
	defer ticker.Stop()

	for !u.interrupted.Load() {
		items := u.queue.Drain()
		for _, item := range items {
			if u.interrupted.Load() {
				break
			}
			u.sendWithRetry(item)
		}
		if len(items) == 0 && u.queue.isClosed() {
			break
		}
		<-ticker.C
	}

	if u.logger != nil && u.interrupted.Load() {
		u.logger.Warnw("uploader received interrupt signal", "worker", u.name)
	}
}

func (u *dataUploader) sendWithRetry(item any) {
	data := item
	if u.prepare != nil {
		data = u.prepare(item)
	}

	attemptsLeft := u.apiAttempts
	for !u.interrupted.Load() {
		err := u.send(u.jobID, data)
		if err == nil {
			return
		}
		if !isRetryable(err) {
			if u.logger != nil {
				u.logger.Errorw("uploader failed to send data chunk, skipping", "worker", u.name, "error", err)
			}
			return
		}

		attemptsLeft--
		if attemptsLeft <= 0 {
			if u.logger != nil {
				u.logger.Errorw("uploader exhausted retries connecting to backend, terminating", "worker", u.name)
			}
			u.interrupted.Store(true)
			return
		}
		if u.logger != nil {
			u.logger.Infow("backend unavailable, will retry", "worker", u.name, "next_attempt", u.apiTimeout)
		}
		time.Sleep(u.apiTimeout)
	}
}

// UploaderClient is the subset of the control-plane client the
// background uploaders and the imbalance finalizer call into.
// Implemented by the transport package.
type UploaderClient interface {
	SendTrails(jobID string, trails []any) error
	SendMonitorings(jobID string, data []any) error
	SetImbalanceAndDSC(jobID string, rps float64, timestamp time.Time, comment string) error
	PrepareTestData(dataItem, statItem any) any
	PrepareMonitoringData(dataItem any) any
}

// TrailEntry pairs one aggregate-result tick with its matching stats,
// as pushed by the generator's data-pipe plugin.
type TrailEntry struct {
	Aggregate any
	Stats     any
}

// newTrailUploader wires a trail DataQueue to SendTrails, preparing
// each (aggregate, stats) pair through PrepareTestData first.
func newTrailUploader(jobID string, queue *DataQueue, client UploaderClient, logger *zap.SugaredLogger) *dataUploader {
	return newDataUploader(
		"Trail Uploader",
		jobID,
		queue,
		logger,
		func(item any) any {
			entry := item.(TrailEntry)
			return client.PrepareTestData(entry.Aggregate, entry.Stats)
		},
		func(jobID string, data any) error {
			return client.SendTrails(jobID, []any{data})
		},
	)
}

// newMonitoringUploader wires a monitoring DataQueue to
// SendMonitorings, preparing each raw chunk through
// PrepareMonitoringData first.
func newMonitoringUploader(jobID string, queue *DataQueue, client UploaderClient, logger *zap.SugaredLogger) *dataUploader {
	return newDataUploader(
		"Monitoring Uploader",
		jobID,
		queue,
		logger,
		func(item any) any {
			return client.PrepareMonitoringData(item)
		},
		func(jobID string, data any) error {
			return client.SendMonitorings(jobID, []any{data})
		},
	)
}
