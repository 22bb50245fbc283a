package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

var timePattern = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseProgressTime extracts the "time=HH:MM:SS.xx" position from an ffmpeg
// stats line.
func ParseProgressTime(line string) (time.Duration, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, true
}

// Percent converts a position into an integer percentage of durationMS,
// clamped to 0..100. Returns 0 when the duration is unknown.
func Percent(position time.Duration, durationMS int64) int {
	if durationMS <= 0 {
		return 0
	}
	pct := int(float64(position.Milliseconds()) / float64(durationMS) * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
