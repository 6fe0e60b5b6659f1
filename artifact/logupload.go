package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/logging"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

// LogType identifies which process produced a log file, determining both
// its filename pattern on disk and the resource type it's reported under.
type LogType int

const (
	LogTypeUnknown LogType = iota
	LogTypeTank
	LogTypePhantom
	LogTypePandora
	LogTypeJMeter
)

func (t LogType) String() string {
	switch t {
	case LogTypeTank:
		return "tank"
	case LogTypePhantom:
		return "phantom"
	case LogTypePandora:
		return "pandora"
	case LogTypeJMeter:
		return "jmeter"
	default:
		return "unknown"
	}
}

var logFilePatterns = map[LogType]*regexp.Regexp{
	LogTypePhantom: regexp.MustCompile(`^phantom_[^_]*\.log$`),
	LogTypePandora: regexp.MustCompile(`^pandora_[^_]*\.log$`),
	LogTypeJMeter:  regexp.MustCompile(`^jmeter_[^_]*\.log$`),
}

func logTypeForGenerator(g model.Generator) LogType {
	switch g {
	case model.GeneratorPhantom:
		return LogTypePhantom
	case model.GeneratorPandora:
		return LogTypePandora
	case model.GeneratorJMeter:
		return LogTypeJMeter
	default:
		return LogTypeUnknown
	}
}

// LogClient ships one already-chunked batch of log lines to a cloud log
// group. Implemented by the transport package.
type LogClient interface {
	SendLog(logGroupID string, messages []string, resourceType, resourceID string) error
}

// LogUploader publishes a finished job's tank log, plus its generator's
// own log file when one can be found, to a cloud log group. Chunk and
// message size limits are shared with the structured log processor's
// cloud log group channel, since both ultimately feed the same backend.
type LogUploader struct {
	logger       *zap.SugaredLogger
	client       LogClient
	cancellation *cancel.Cancellation
	chunkSize    int
	messageMax   int
}

func NewLogUploader(logger *zap.SugaredLogger, client LogClient, cancellation *cancel.Cancellation) *LogUploader {
	channel := logging.CloudLogGroupChannel()
	return &LogUploader{
		logger:       logger,
		client:       client,
		cancellation: cancellation,
		chunkSize:    channel.MaxBatchSize,
		messageMax:   channel.MaxMessageLength,
	}
}

func (u *LogUploader) PublishArtifacts(job *model.Job) error {
	if job.LogGroupID == "" || job.ArtifactDirPath == "" {
		return nil
	}
	u.logger.Infow("sending logs", "job_id", job.ID)
	if err := u.sendLogFile(job, LogTypeTank); err != nil {
		return err
	}
	return u.sendLogFile(job, logTypeForGenerator(job.Generator()))
}

func (u *LogUploader) sendLogFile(job *model.Job, logType LogType) error {
	if logType == LogTypeUnknown {
		return nil
	}
	if err := u.cancellation.RaiseOnSet(cancel.Forced); err != nil {
		return err
	}

	logFile, err := findLogFile(job.ArtifactDirPath, logType)
	if err != nil {
		return fmt.Errorf("%w: failed to locate %s log for job %s: %v", ErrArtifactUpload, logType, job.ID, err)
	}
	if logFile == "" {
		return nil
	}
	if err := u.sendLog(job, logFile, logType); err != nil {
		return fmt.Errorf("%w: failed to send %s log from %s for job %s into log group %s: %v",
			ErrArtifactUpload, logType, job.ArtifactDirPath, job.ID, job.LogGroupID, err)
	}
	return nil
}

// findLogFile locates the log file for logType under dir. Tank's file
// name is fixed; every other generator's log is matched by pattern
// since yandextank names it after the run's own identifier.
func findLogFile(dir string, logType LogType) (string, error) {
	if logType == LogTypeTank {
		path := filepath.Join(dir, "tank.log")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		return "", nil
	}

	pattern, ok := logFilePatterns[logType]
	if !ok {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pattern.MatchString(e.Name()) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}

func (u *LogUploader) sendLog(job *model.Job, path string, logType LogType) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		u.logger.Errorw("no file for sending log", "log_type", logType)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	resourceType := "loadtesting.log." + logType.String()
	reader := newLogReader(u.logger, u.chunkSize, u.messageMax)
	if err := reader.read(f, func(chunk []string) error {
		if err := u.cancellation.RaiseOnSet(cancel.Forced); err != nil {
			return err
		}
		return u.client.SendLog(job.LogGroupID, chunk, resourceType, job.ID)
	}); err != nil {
		return err
	}
	u.logger.Debugw("logs were sent", "log_type", logType)
	return nil
}
