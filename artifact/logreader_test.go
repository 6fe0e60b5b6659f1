package artifact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReader_GroupsShortLinesIntoOneMessagePerChunkSlot(t *testing.T) {
	r := newLogReader(nil, 100, 20)
	content := "one\ntwo\nthree\n"

	var chunks [][]string
	require.NoError(t, r.read(strings.NewReader(content), func(c []string) error {
		chunks = append(chunks, c)
		return nil
	}))

	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
	assert.Equal(t, "one\ntwo\nthree\n", chunks[0][0])
}

func TestLogReader_StartsNewMessageWhenSizeBudgetExceeded(t *testing.T) {
	r := newLogReader(nil, 100, 8)
	content := "12345\n123456\n"

	var chunks [][]string
	require.NoError(t, r.read(strings.NewReader(content), func(c []string) error {
		chunks = append(chunks, c)
		return nil
	}))

	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 2)
	assert.Equal(t, "12345\n", chunks[0][0])
	assert.Equal(t, "123456\n", chunks[0][1])
}

func TestLogReader_SplitsLineLongerThanMessageMax(t *testing.T) {
	r := newLogReader(nil, 100, 5)
	line := "abcdefghij"

	var chunks [][]string
	require.NoError(t, r.read(strings.NewReader(line), func(c []string) error {
		chunks = append(chunks, c)
		return nil
	}))

	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 2)
	assert.Equal(t, "abcde", chunks[0][0])
	assert.Equal(t, "fghij", chunks[0][1])
}

func TestLogReader_FlushesOnceChunkMaxSizeExceeded(t *testing.T) {
	r := newLogReader(nil, 2, 4)
	content := "aa\nbb\ncc\ndd\n"

	var chunks [][]string
	require.NoError(t, r.read(strings.NewReader(content), func(c []string) error {
		chunks = append(chunks, c)
		return nil
	}))

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
}

func TestLogReader_OnChunkErrorStopsReading(t *testing.T) {
	r := newLogReader(nil, 100, 4)
	content := "aa\nbb\n"

	calls := 0
	err := r.read(strings.NewReader(content), func(c []string) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
