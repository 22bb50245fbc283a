package subtitles

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var markupPattern = regexp.MustCompile(`<[^>]*>|\{\\[^}]*\}`)

// ReadSRT loads the cues of an SRT file in file order.
func ReadSRT(path string) ([]*Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer f.Close()
	return ParseSRT(f)
}

// ParseSRT parses SRT content. Multi-line cue text is joined with a space and
// markup tags are removed. Cues whose text ends up empty keep their times but
// have no text. Blocks without a valid timing line are skipped.
func ParseSRT(r io.Reader) ([]*Cue, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var cues []*Cue
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		timing := 0
		if timing < len(lines) && isNumeric(lines[timing]) {
			timing++
		}
		if timing >= len(lines) {
			continue
		}
		start, end, ok := parseTiming(lines[timing])
		if !ok {
			continue
		}
		text := make([]string, 0, len(lines)-timing-1)
		for _, line := range lines[timing+1:] {
			line = strings.TrimSpace(markupPattern.ReplaceAllString(line, ""))
			if line != "" {
				text = append(text, line)
			}
		}
		cue := &Cue{Start: Ptr(start), End: Ptr(end)}
		if joined := strings.Join(text, " "); joined != "" {
			cue.Text = Ptr(joined)
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

func splitBlocks(content string) []string {
	var blocks []string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func parseTiming(line string) (int64, int64, bool) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, false
	}
	// Position hints such as "X1:40 X2:600" may follow the end time.
	if fields := strings.Fields(right); len(fields) > 0 {
		right = fields[0]
	}
	start, err := parseSRTTimestamp(left)
	if err != nil {
		return 0, 0, false
	}
	end, err := parseSRTTimestamp(right)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// parseSRTTimestamp parses HH:MM:SS,mmm (a period is accepted for the comma)
// into milliseconds.
func parseSRTTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(millis), nil
}

func isNumeric(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}
