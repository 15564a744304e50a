// ABOUTME: LRC lyric text parsing
// ABOUTME: Turns "[mm:ss.xx]words" lines into timestamped lines
package lyrics

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Line is one timed lyric line
type Line struct {
	StartTimeMs int64
	Words       string
}

var lrcLine = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\](.*)`)

// ParseLRC parses LRC text. Lines without a timestamp or without words
// are skipped. A two-digit fraction is hundredths, three digits is
// milliseconds. The result is ordered by start time.
func ParseLRC(text string) []Line {
	var lines []Line

	for _, raw := range strings.Split(text, "\n") {
		m := lrcLine.FindStringSubmatch(strings.TrimRight(raw, "\r"))
		if m == nil || m[4] == "" {
			continue
		}

		minutes, _ := strconv.ParseInt(m[1], 10, 64)
		seconds, _ := strconv.ParseInt(m[2], 10, 64)
		fraction, _ := strconv.ParseInt(m[3], 10, 64)
		if len(m[3]) == 2 {
			fraction *= 10
		}

		lines = append(lines, Line{
			StartTimeMs: minutes*60_000 + seconds*1000 + fraction,
			Words:       m[4],
		})
	}

	slices.SortStableFunc(lines, func(a, b Line) int {
		switch {
		case a.StartTimeMs < b.StartTimeMs:
			return -1
		case a.StartTimeMs > b.StartTimeMs:
			return 1
		}
		return 0
	})
	return lines
}
