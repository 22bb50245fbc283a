package scenes

import (
	"context"
	"log/slog"
	"time"

	"vidresume/internal/logging"
	"vidresume/internal/media/ffmpeg"
	"vidresume/internal/media/ffprobe"
	"vidresume/internal/services"
)

// ProbeFunc returns the duration of a video in milliseconds.
type ProbeFunc func(ctx context.Context, videoPath string) (int64, error)

// FFprobeDuration returns a ProbeFunc backed by ffprobe.
func FFprobeDuration(binary string) ProbeFunc {
	return func(ctx context.Context, videoPath string) (int64, error) {
		result, err := ffprobe.Inspect(ctx, binary, videoPath)
		if err != nil {
			return 0, services.Wrap(services.ErrDetectorUnavailable, "scenes", "probe", "inspect video", err)
		}
		ms := result.DurationMillis()
		if ms <= 0 {
			return 0, services.Wrap(services.ErrValidation, "scenes", "probe", "video has no duration", nil)
		}
		return ms, nil
	}
}

// Segmenter probes a video and turns detector cuts into a scene list.
type Segmenter struct {
	Detector Detector
	Probe    ProbeFunc
	Logger   *slog.Logger
}

// Run detects scenes in videoPath. progress receives integer percentages of
// the decoded position and a final 100.
func (s *Segmenter) Run(ctx context.Context, videoPath string, threshold float64, progress func(int)) ([]Scene, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	duration, err := s.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("scene detection starting",
		logging.String("video_path", videoPath),
		logging.Int64("duration_ms", duration),
		logging.Float64("threshold", threshold),
	)

	var b Builder
	last := -1
	err = s.Detector.Detect(ctx, videoPath, threshold,
		func(cut int64) { b.Add(cut) },
		func(pos int64) {
			pct := min(ffmpeg.Percent(time.Duration(pos)*time.Millisecond, duration), 99)
			if pct != last && progress != nil {
				last = pct
				progress(pct)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	scenes := b.Finish(duration)
	if progress != nil {
		progress(100)
	}
	logger.Info("scene detection complete",
		logging.String("video_path", videoPath),
		logging.Int("scene_count", len(scenes)),
	)
	return scenes, nil
}
