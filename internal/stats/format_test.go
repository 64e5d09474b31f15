package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2040, "2 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3072 GB"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatBytes(tc.in), "FormatBytes(%d)", tc.in)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{999, "0s"},
		{5000, "5s"},
		{65000, "1m 5s"},
		{3600000, "1h 0m 0s"},
		{3665000, "1h 1m 5s"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.in), "FormatDuration(%d)", tc.in)
	}
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "12,345", FormatCount(12345))
}
