// Package duration converts free-text giveaway durations such as "1h 30m"
// into milliseconds and back into short human summaries.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	Second int64 = 1000
	Minute       = 60 * Second
	Hour         = 60 * Minute
	Day          = 24 * Hour
)

var tokenRegex = regexp.MustCompile(`(?i)(\d+)\s*([smhd])`)

var unitMs = map[string]int64{
	"s": Second,
	"m": Minute,
	"h": Hour,
	"d": Day,
}

// Parse sums every <integer><unit> token in text and returns the total in
// milliseconds. Text that is not a token is ignored. A result of 0 means no
// valid token was found and callers must reject it.
//
// Values are not bounded; a huge token overflows int64.
func Parse(text string) int64 {
	var total int64
	for _, m := range tokenRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			// more digits than int64 holds
			continue
		}
		total += n * unitMs[strings.ToLower(m[2])]
	}
	return total
}

// Format renders ms using its largest units: "2d 4h 0m", "1h 30m", "5m 3s" or "42s".
func Format(ms int64) string {
	seconds := ms / Second
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours%24, minutes%60)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
