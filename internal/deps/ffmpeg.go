package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SceneFilters are the ffmpeg filters scene detection needs.
var SceneFilters = []string{"select", "showinfo"}

// CheckFFmpegFilters reports whether binary was built with every filter in
// filters, reading `ffmpeg -filters`.
func CheckFFmpegFilters(ctx context.Context, binary string, filters ...string) Status {
	result := Status{
		Name:        "FFmpeg filters",
		Command:     binary,
		Description: "Scene detection needs " + strings.Join(filters, ", "),
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := exec.CommandContext(checkCtx, binary, "-hide_banner", "-filters").Output() //nolint:gosec
	if err != nil {
		result.Detail = fmt.Sprintf("list filters: %v", err)
		return result
	}
	available := ParseFilterList(output)
	var missing []string
	for _, f := range filters {
		if _, ok := available[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		result.Detail = "missing filters: " + strings.Join(missing, ", ")
		return result
	}
	result.Available = true
	return result
}

// ParseFilterList extracts filter names from `ffmpeg -filters` output. Filter
// rows start with a flags column followed by the name.
func ParseFilterList(output []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
