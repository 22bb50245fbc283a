package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidresume/internal/intervals"
	"vidresume/internal/logging"
	"vidresume/internal/media/ffmpeg"
	"vidresume/internal/services"
)

// Phase names one step of a render.
type Phase string

const (
	PhaseCut    Phase = "cut"
	PhaseAudio  Phase = "audio"
	PhaseVideo  Phase = "video"
	PhaseEncode Phase = "encode"
)

// Request describes one render.
type Request struct {
	VideoPath  string
	OutputPath string
	Intervals  []intervals.Interval
	WorkDir    string
	AudioCodec string
	VideoCodec string
	// HasAudio is false for sources without an audio stream.
	HasAudio bool
	// AV1 re-encodes the joined output through the drapto library.
	AV1 bool
}

// Phases lists the phases a request goes through, in order.
func (r Request) Phases() []Phase {
	phases := []Phase{PhaseCut, PhaseAudio, PhaseVideo}
	if r.AV1 {
		phases = append(phases, PhaseEncode)
	}
	return phases
}

// Encoder turns a rendered file into its final encoding inside outputDir and
// returns the path it wrote.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(int)) (string, error)
}

// FFmpegRenderer renders resumes with ffmpeg.
type FFmpegRenderer struct {
	Binary  string
	Runner  ffmpeg.Runner
	Encoder Encoder
	Logger  *slog.Logger
}

// NewFFmpegRenderer returns a renderer using the os/exec runner.
func NewFFmpegRenderer(binary string, logger *slog.Logger) *FFmpegRenderer {
	return &FFmpegRenderer{Binary: binary, Runner: ffmpeg.CommandRunner{}, Logger: logger}
}

// Render writes req.OutputPath and returns the path of the final file, which
// differs from OutputPath when the AV1 pass changes the container.
func (r *FFmpegRenderer) Render(ctx context.Context, req Request, progress func(Phase, int)) (string, error) {
	logger := logging.WithContext(ctx, r.Logger)
	report := func(phase Phase, pct int) {
		if progress != nil {
			progress(phase, pct)
		}
	}

	parts := Clamp(req.Intervals)
	if len(parts) == 0 {
		return "", services.Wrap(services.ErrValidation, "render", "plan", "resume has no playable intervals", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", services.Wrap(services.ErrConfiguration, "render", "plan", "output path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "plan", "create output directory", err)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "plan", "create work directory", err)
	}
	dir, err := os.MkdirTemp(req.WorkDir, "render-")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "plan", "create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	var total int64
	for _, p := range parts {
		total += p.Duration()
	}
	logger.Debug("render planned",
		logging.Int("parts", len(parts)),
		logging.Int64("resume_ms", total),
		logging.String("output_path", req.OutputPath),
	)

	files := make([]string, 0, len(parts))
	for i, p := range parts {
		report(PhaseCut, i*100/len(parts))
		file := filepath.Join(dir, fmt.Sprintf("part_%04d.mkv", i))
		if err := r.run(ctx, "cut", cutArgs(req, p, file), nil); err != nil {
			return "", err
		}
		files = append(files, file)
	}
	report(PhaseCut, 100)

	list := filepath.Join(dir, "parts.txt")
	if err := writeConcatList(list, files); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "concat", "write concat list", err)
	}

	audio := ""
	if req.HasAudio {
		audio = filepath.Join(dir, "audio.mka")
		args := append(concatInput(list), "-vn", "-c:a", req.AudioCodec, audio)
		if err := r.run(ctx, "audio", args, r.tracker(PhaseAudio, total, report)); err != nil {
			return "", err
		}
	}
	report(PhaseAudio, 100)

	video := filepath.Join(dir, "video.mkv")
	args := append(concatInput(list), "-an", "-c:v", req.VideoCodec, video)
	if err := r.run(ctx, "video", args, r.tracker(PhaseVideo, total, report)); err != nil {
		return "", err
	}

	mux := []string{"-hide_banner", "-nostdin", "-y", "-i", video}
	if audio != "" {
		mux = append(mux, "-i", audio, "-map", "0:v:0", "-map", "1:a:0")
	}
	mux = append(mux, "-c", "copy", req.OutputPath)
	if err := r.run(ctx, "mux", mux, nil); err != nil {
		return "", err
	}
	report(PhaseVideo, 100)

	final := req.OutputPath
	if req.AV1 {
		if r.Encoder == nil {
			return "", services.Wrap(services.ErrConfiguration, "render", "encode", "AV1 requested without an encoder", nil)
		}
		encoded, err := r.Encoder.Encode(ctx, req.OutputPath, AV1Dir(req.OutputPath), func(pct int) {
			report(PhaseEncode, pct)
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", services.Wrap(services.ErrExternalTool, "render", "encode", "drapto encode failed", err)
		}
		final = encoded
		report(PhaseEncode, 100)
	}

	logger.Info("resume rendered",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output_path", final),
		logging.Int64("resume_ms", total),
	)
	return final, nil
}

func (r *FFmpegRenderer) run(ctx context.Context, op string, args []string, onLine func(string)) error {
	binary := r.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	runner := r.Runner
	if runner == nil {
		runner = ffmpeg.CommandRunner{}
	}
	if err := runner.Run(ctx, binary, args, onLine); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", op, "ffmpeg failed", err)
	}
	return nil
}

func (r *FFmpegRenderer) tracker(phase Phase, totalMS int64, report func(Phase, int)) func(string) {
	last := -1
	return func(line string) {
		pos, ok := ffmpeg.ParseProgressTime(line)
		if !ok {
			return
		}
		pct := min(ffmpeg.Percent(pos, totalMS), 99)
		if pct != last {
			last = pct
			report(phase, pct)
		}
	}
}

// AV1Dir is the directory the AV1 encode of outputPath is written to.
func AV1Dir(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), "av1")
}

// Clamp moves negative starts to zero and drops intervals left empty.
func Clamp(list []intervals.Interval) []intervals.Interval {
	out := make([]intervals.Interval, 0, len(list))
	for _, iv := range list {
		if iv.Start < 0 {
			iv.Start = 0
		}
		if iv.End <= iv.Start {
			continue
		}
		out = append(out, iv)
	}
	return out
}

func cutArgs(req Request, iv intervals.Interval, out string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", seconds(iv.Start),
		"-i", req.VideoPath,
		"-t", seconds(iv.Duration()),
		"-c:v", req.VideoCodec,
	}
	if req.HasAudio {
		args = append(args, "-c:a", req.AudioCodec)
	} else {
		args = append(args, "-an")
	}
	return append(args, out)
}

func concatInput(list string) []string {
	return []string{"-hide_banner", "-nostdin", "-y", "-f", "concat", "-safe", "0", "-i", list}
}

func writeConcatList(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(f, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

// Weighted folds per-phase percentages into one 0..100 value, giving every
// phase an equal share.
func Weighted(phases []Phase, report func(int)) func(Phase, int) {
	index := make(map[Phase]int, len(phases))
	for i, p := range phases {
		index[p] = i
	}
	return func(phase Phase, pct int) {
		if report == nil {
			return
		}
		i, ok := index[phase]
		if !ok || len(phases) == 0 {
			return
		}
		pct = max(0, min(pct, 100))
		report((i*100 + pct) / len(phases))
	}
}
