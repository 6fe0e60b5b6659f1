package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name     string
		s        string
		length   int
		inMiddle bool
		want     string
	}{
		{"no-op when shorter than limit", "some_string", 11, false, "some_string"},
		{"empty string unchanged", "", 10, false, ""},
		{"zero length means unlimited", "very long long string", 0, false, "very long long string"},
		{"small cut skips ellipsis", "some_string", 9, false, "some_stri"},
		{"small cut skips ellipsis in middle too", "some_string", 9, true, "some_stri"},
		{"end cut with ellipsis", "very long long string", 15, false, "very long lo..."},
		{"middle cut with ellipsis", "very long long string", 15, true, "very lo...tring"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.s, tc.length, tc.inMiddle))
		})
	}
}

func TestHasPrefixOrSuffix(t *testing.T) {
	assert.True(t, HasPrefixOrSuffix("hello world", "hello"))
	assert.True(t, HasPrefixOrSuffix("hello world", "world"))
	assert.False(t, HasPrefixOrSuffix("hello world", "xyz"))
	assert.False(t, HasPrefixOrSuffix("short", "shorter-than-this"))
	assert.False(t, HasPrefixOrSuffix("hello", ""))
}
