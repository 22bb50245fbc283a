package resume

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects which signals contribute intervals.
type Mode int

const (
	Subtitles           Mode = 1
	Objects             Mode = 2
	SubtitlesAndObjects Mode = 3
)

// UsesSubtitles reports whether subtitle selections contribute.
func (m Mode) UsesSubtitles() bool {
	return m == Subtitles || m == SubtitlesAndObjects
}

// UsesObjects reports whether object occurrences contribute.
func (m Mode) UsesObjects() bool {
	return m == Objects || m == SubtitlesAndObjects
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= Subtitles && m <= SubtitlesAndObjects
}

func (m Mode) String() string {
	switch m {
	case Subtitles:
		return "subtitles"
	case Objects:
		return "objects"
	case SubtitlesAndObjects:
		return "subtitles_and_objects"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode accepts a mode name or its number.
func ParseMode(value string) (Mode, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(value); err == nil {
		if m := Mode(n); m.Valid() {
			return m, nil
		}
		return 0, fmt.Errorf("unknown resume mode %d", n)
	}
	for _, m := range []Mode{Subtitles, Objects, SubtitlesAndObjects} {
		if m.String() == value {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown resume mode %q", value)
}
