package artifact

import (
	"bufio"
	"io"
	"strings"

	"go.uber.org/zap"
)

// logReader groups the lines of a log file into messages bounded by
// messageMaxLength, then batches those messages into chunks of at most
// chunkMaxSize, matching a transport's per-request message and batch
// limits.
type logReader struct {
	logger           *zap.SugaredLogger
	chunkMaxSize     int
	messageMaxLength int

	sizeLeft  int
	current   *[]string
	collector []*[]string
}

func newLogReader(logger *zap.SugaredLogger, chunkMaxSize, messageMaxLength int) *logReader {
	return &logReader{logger: logger, chunkMaxSize: chunkMaxSize, messageMaxLength: messageMaxLength}
}

// read streams src line by line, invoking onChunk once for every batch
// of up to chunkMaxSize accumulated messages, and a final time for
// whatever remains once src is exhausted.
func (r *logReader) read(src io.Reader, onChunk func([]string) error) error {
	br := bufio.NewReader(src)
	for {
		line, readErr := br.ReadString('\n')
		if len(line) > 0 {
			r.ingest(line)
			if len(r.collector) > r.chunkMaxSize {
				if err := onChunk(r.flush()); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}
	}
	for len(r.collector) > 0 {
		if err := onChunk(r.flush()); err != nil {
			return err
		}
	}
	return nil
}

func (r *logReader) ingest(line string) {
	if len(line) <= r.messageMaxLength {
		r.sink(line)
		return
	}
	if r.logger != nil {
		r.logger.Warn("log message is exceeding service limit per message, sending cut message")
	}
	for len(line) > r.messageMaxLength {
		r.sink(line[:r.messageMaxLength])
		line = line[r.messageMaxLength:]
	}
	if len(line) > 0 {
		r.sink(line)
	}
}

func (r *logReader) sink(line string) {
	if r.current == nil || len(line) > r.sizeLeft {
		r.initChunk()
	}
	*r.current = append(*r.current, line)
	r.sizeLeft -= len(line)
}

func (r *logReader) initChunk() {
	lines := make([]string, 0, 4)
	r.current = &lines
	r.sizeLeft = r.messageMaxLength
	r.collector = append(r.collector, r.current)
}

func (r *logReader) flush() []string {
	if len(r.collector) == 0 {
		return nil
	}
	n := r.chunkMaxSize
	if n > len(r.collector) {
		n = len(r.collector)
	}
	batch := r.collector[:n]
	r.collector = r.collector[n:]

	out := make([]string, len(batch))
	for i, linesPtr := range batch {
		out[i] = strings.Join(*linesPtr, "")
	}
	return out
}
