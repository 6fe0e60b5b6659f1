package fsmanager

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var byteSuffixes = map[byte]int64{
	'k': 1 << 10,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
	'P': 1 << 50,
}

// FormatBytes renders a byte count as a short human string, e.g. 1536 -> "1K".
func FormatBytes(value int64) string {
	suffixes := []string{"", "K", "M", "G", "T", "P"}
	suffix := 0
	v := float64(value)
	for v >= 1<<10 && suffix < len(suffixes)-1 {
		v /= 1 << 10
		suffix++
	}
	return strconv.FormatInt(int64(v), 10) + suffixes[suffix]
}

// ParseBytes parses a byte count with an optional k/K/M/G/T/P suffix.
// An empty string, or anything that fails to parse, yields -1.
func ParseBytes(s string, logger *zap.SugaredLogger) int64 {
	if len(s) == 0 {
		return -1
	}
	last := s[len(s)-1]
	if mult, ok := byteSuffixes[last]; ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
		if err != nil {
			if logger != nil {
				logger.Warnf("failed to parse byte value %s", s)
			}
			return -1
		}
		return int64(f * float64(mult))
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		if logger != nil {
			logger.Warnf("failed to parse byte value %s", s)
		}
		return -1
	}
	return n
}
