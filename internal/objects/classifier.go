package objects

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vidresume/internal/services"
)

// Frame is a decoded video frame stored on disk.
type Frame struct {
	Path      string
	Timestamp int64
	// Release removes any temporary storage behind the frame. May be nil.
	Release func()
}

// FrameSource produces the frame shown at a timestamp.
type FrameSource interface {
	FrameAt(ctx context.Context, ms int64) (Frame, error)
}

// Classifier returns the set of labels detected in a frame.
type Classifier interface {
	Labels(ctx context.Context, frame Frame) ([]string, error)
}

// CommandClassifier runs an external detector once per frame. The command is
// called as: Command Args... weights config names frame, and prints one label
// per line on stdout.
type CommandClassifier struct {
	Command   string
	Args      []string
	Artifacts Artifacts
	known     map[string]struct{}
}

// NewCommandClassifier validates the artifacts and loads the label names.
func NewCommandClassifier(command string, args []string, artifacts Artifacts) (*CommandClassifier, error) {
	if strings.TrimSpace(command) == "" {
		return nil, services.Wrap(services.ErrDetectorUnavailable, "objects", "classifier", "detector command not configured", nil)
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, services.Wrap(services.ErrDetectorUnavailable, "objects", "classifier", fmt.Sprintf("detector command %q not found", command), err)
	}
	if err := artifacts.Validate(); err != nil {
		return nil, err
	}
	names, err := LoadNames(artifacts.Names)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}
	return &CommandClassifier{Command: command, Args: args, Artifacts: artifacts, known: known}, nil
}

// Labels runs the detector on frame. Unknown labels are discarded and
// duplicates collapsed, keeping first-seen order.
func (c *CommandClassifier) Labels(ctx context.Context, frame Frame) ([]string, error) {
	args := append(append([]string(nil), c.Args...), c.Artifacts.Weights, c.Artifacts.Config, c.Artifacts.Names, frame.Path)
	cmd := exec.CommandContext(ctx, c.Command, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "objects", "classify",
			strings.TrimSpace(stderr.String()), err)
	}

	var labels []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			continue
		}
		if _, ok := c.known[label]; !ok {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels, nil
}

// FFmpegFrameSource extracts single PNG frames with ffmpeg.
type FFmpegFrameSource struct {
	Binary    string
	VideoPath string
	WorkDir   string
}

// FrameAt seeks to ms and writes one frame into a temporary file under WorkDir.
func (s *FFmpegFrameSource) FrameAt(ctx context.Context, ms int64) (Frame, error) {
	binary := s.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return Frame{}, fmt.Errorf("create frame dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.WorkDir, "frame-")
	if err != nil {
		return Frame{}, fmt.Errorf("create frame dir: %w", err)
	}
	release := func() { _ = os.RemoveAll(dir) }
	out := filepath.Join(dir, "frame.png")
	seek := strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
	cmd := exec.CommandContext(ctx, binary, //nolint:gosec
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-ss", seek, "-i", s.VideoPath,
		"-frames:v", "1", "-y", out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		release()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Frame{}, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return Frame{}, services.Wrap(services.ErrDetectorUnavailable, "objects", "frame", "ffmpeg binary not found", err)
		}
		return Frame{}, services.Wrap(services.ErrTransient, "objects", "frame",
			fmt.Sprintf("extract frame at %d ms: %s", ms, strings.TrimSpace(string(output))), err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		release()
		return Frame{}, services.Wrap(services.ErrTransient, "objects", "frame", fmt.Sprintf("no frame decoded at %d ms", ms), err)
	}
	return Frame{Path: out, Timestamp: ms, Release: release}, nil
}
