package reporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu          sync.Mutex
	batches     [][]any
	failNext    int
	maxBatch    int
	lastErr     error
}

func (h *recordingHandler) Handle(requestID string, data []any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failNext > 0 {
		h.failNext--
		return assert.AnError
	}
	cp := append([]any{}, data...)
	h.batches = append(h.batches, cp)
	return nil
}

func (h *recordingHandler) ErrorHandler(err error, logger *zap.SugaredLogger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = err
}

func (h *recordingHandler) MaxBatchSize() int { return h.maxBatch }

func (h *recordingHandler) snapshot() [][]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]any{}, h.batches...)
}

func TestReporter_FlushesSourceRecordsToHandler(t *testing.T) {
	src := NewSource(0)
	src.Put("a")
	src.Put("b")

	h := &recordingHandler{}
	r := New(zap.NewNop().Sugar(), []Handler{h}, DefaultConfig(), src)

	require.NoError(t, r.Report(false))
	batches := h.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []any{"a", "b"}, batches[0])
}

func TestReporter_ChopsIntoMaxBatchSize(t *testing.T) {
	src := NewSource(0)
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		src.Put(v)
	}

	h := &recordingHandler{maxBatch: 2}
	r := New(zap.NewNop().Sugar(), []Handler{h}, DefaultConfig(), src)

	require.NoError(t, r.Report(false))
	batches := h.snapshot()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestReporter_FailedBatchIsRetainedAndRetried(t *testing.T) {
	src := NewSource(0)
	src.Put("a")

	h := &recordingHandler{failNext: 1}
	r := New(zap.NewNop().Sugar(), []Handler{h}, DefaultConfig(), src)

	require.NoError(t, r.Report(false))
	assert.Empty(t, h.snapshot())
	assert.Error(t, h.lastErr)

	require.NoError(t, r.Report(false))
	batches := h.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []any{"a"}, batches[0])
}

func TestReporter_RetentionEvictsOldUnsent(t *testing.T) {
	src := NewSource(0)
	src.Put("a")

	h := &recordingHandler{failNext: 1}
	cfg := DefaultConfig()
	cfg.RetentionPeriod = time.Nanosecond
	r := New(zap.NewNop().Sugar(), []Handler{h}, cfg, src)

	require.NoError(t, r.Report(false))
	time.Sleep(time.Millisecond)

	require.NoError(t, r.Report(false))
	assert.Empty(t, h.snapshot(), "unsent record should have aged out of the retention window")
}

func TestReporter_MaxUnsentSizeEvictsOldestFirst(t *testing.T) {
	src := NewSource(0)

	h := &recordingHandler{failNext: 1000}
	cfg := DefaultConfig()
	cfg.MaxUnsentSize = 2
	r := New(zap.NewNop().Sugar(), []Handler{h}, cfg, src)

	src.Put("a")
	require.NoError(t, r.Report(false))
	src.Put("b")
	require.NoError(t, r.Report(false))
	src.Put("c")
	require.NoError(t, r.Report(false))

	h.failNext = 0
	require.NoError(t, r.Report(true))
	batches := h.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []any{"b", "c"}, batches[0], "oldest unsent record should have been evicted")
}

func TestNullReporter_StopsOnContextCancel(t *testing.T) {
	var r NullReporter
	assert.NoError(t, r.Report(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx) // returns only once ctx is canceled
}

func TestChop(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chop(data, 2))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, chop(data, 0))
	assert.Nil(t, chop([]int{}, 2))
}
