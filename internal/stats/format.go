package stats

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n in 1024-based units with at most one decimal,
// e.g. 1536 -> "1.5 KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%s %s", humanize.Ftoa(math.Round(value*10)/10), byteUnits[unit])
}

// FormatDuration renders milliseconds as "1h 1m 5s", "1m 5s" or "5s".
func FormatDuration(ms int64) string {
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes%60, seconds%60)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatCount adds thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
