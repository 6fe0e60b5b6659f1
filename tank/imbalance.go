package tank

import (
	"time"

	"go.uber.org/zap"
)

// ImbalanceEntry is one autostop criterion trigger reported by the
// generator's imbalance-detector plugin.
type ImbalanceEntry struct {
	Timestamp time.Time
	RPS       float64
	Message   string
}

// backgroundWorker is a job-scoped worker that runs for the whole
// duration of the test and is torn down once it finishes, e.g. a
// dataUploader.
type backgroundWorker interface {
	Start()
	Stop()
	Finish()
}

// finalizer runs once after a job's background workers have finished,
// to summarize or flush whatever they collected.
type finalizer interface {
	Run()
}

// imbalanceUploader is a finalizer: it keeps only the most recent
// ImbalanceEntry reported during the test and, if any arrived, reports
// it as the job's imbalance point once the test is over.
type imbalanceUploader struct {
	logger *zap.SugaredLogger
	jobID  string
	queue  *DataQueue
	client UploaderClient
}

func newImbalanceUploader(logger *zap.SugaredLogger, jobID string, queue *DataQueue, client UploaderClient) *imbalanceUploader {
	return &imbalanceUploader{logger: logger, jobID: jobID, queue: queue, client: client}
}

// Run drains whatever is currently queued and reports the entry with
// the latest timestamp, if one was found.
func (u *imbalanceUploader) Run() {
	var latest *ImbalanceEntry
	for _, item := range u.queue.Drain() {
		entry, ok := item.(ImbalanceEntry)
		if !ok {
			continue
		}
		if latest == nil || entry.Timestamp.After(latest.Timestamp) {
			e := entry
			latest = &e
		}
	}
	if latest == nil {
		return
	}

	if err := u.client.SetImbalanceAndDSC(u.jobID, latest.RPS, latest.Timestamp, latest.Message); err != nil && u.logger != nil {
		u.logger.Errorw("failed to report imbalance point", "job_id", u.jobID, "error", err)
	}
}
