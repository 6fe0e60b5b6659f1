package fsmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "1K", FormatBytes(1024))
	assert.Equal(t, "2G", FormatBytes(2*1024*1024*1024))
	assert.Equal(t, "512", FormatBytes(512))
}

func TestParseBytes(t *testing.T) {
	assert.EqualValues(t, -1, ParseBytes("", nil))
	assert.EqualValues(t, 2*1024*1024*1024, ParseBytes("2G", nil))
	assert.EqualValues(t, 1024, ParseBytes("1k", nil))
	assert.EqualValues(t, 512, ParseBytes("512", nil))
	assert.EqualValues(t, -1, ParseBytes("not-a-number", nil))
}
