package scenes

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"vidresume/internal/media/ffmpeg"
	"vidresume/internal/services"
)

var ptsTimePattern = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// Detector reports shot boundaries in a video.
type Detector interface {
	Detect(ctx context.Context, videoPath string, threshold float64, onCut func(ms int64), onPosition func(ms int64)) error
}

// FFmpegDetector detects cuts with ffmpeg's scene score filter.
type FFmpegDetector struct {
	Binary string
	Runner ffmpeg.Runner
}

// NewFFmpegDetector returns a detector that runs binary (default "ffmpeg").
func NewFFmpegDetector(binary string) *FFmpegDetector {
	return &FFmpegDetector{Binary: binary, Runner: ffmpeg.CommandRunner{}}
}

// Detect runs the scene filter and reports each cut in milliseconds as it is
// printed, along with the decoding position from ffmpeg's stats line.
func (d *FFmpegDetector) Detect(ctx context.Context, videoPath string, threshold float64, onCut func(ms int64), onPosition func(ms int64)) error {
	binary := strings.TrimSpace(d.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	runner := d.Runner
	if runner == nil {
		runner = ffmpeg.CommandRunner{}
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-i", videoPath,
		"-filter:v", fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64)),
		"-f", "null", "-",
	}

	sawOutput := false
	err := runner.Run(ctx, binary, args, func(line string) {
		if ms, ok := ParseCut(line); ok {
			if onCut != nil {
				onCut(ms)
			}
			return
		}
		if pos, ok := ffmpeg.ParseProgressTime(line); ok {
			sawOutput = true
			if onPosition != nil {
				onPosition(pos.Milliseconds())
			}
			return
		}
		if strings.HasPrefix(strings.TrimSpace(line), "Output #0") {
			sawOutput = true
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrDetectorUnavailable, "scenes", "ffmpeg", "ffmpeg binary not found", err)
		}
		return services.Wrap(services.ErrDetectorUnavailable, "scenes", "ffmpeg", "scene detection failed", err)
	}
	if !sawOutput {
		return services.Wrap(services.ErrDetectorUnavailable, "scenes", "ffmpeg", "ffmpeg produced no output stream", nil)
	}
	return nil
}

// ParseCut extracts a showinfo pts_time value as whole milliseconds.
func ParseCut(line string) (int64, bool) {
	if !strings.Contains(line, "showinfo") {
		return 0, false
	}
	m := ptsTimePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int64(seconds * 1000), true
}
