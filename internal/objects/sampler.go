package objects

import (
	"context"
	"errors"
	"log/slog"

	"vidresume/internal/logging"
	"vidresume/internal/services"
)

// Sampler probes frames at planned timestamps and folds labels into an Index.
type Sampler struct {
	Frames     FrameSource
	Classifier Classifier
	Logger     *slog.Logger
}

// Run samples every timestamp in order. Per-frame failures are logged and
// skipped; fatal errors and cancellation end the pass. progress receives
// processed/total*100 after each sample.
func (s *Sampler) Run(ctx context.Context, timestamps []int64, progress func(int)) (*Index, error) {
	logger := logging.WithContext(ctx, s.Logger)
	index := NewIndex()
	total := len(timestamps)
	skipped := 0

	for i, ms := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels, err := s.sample(ctx, ms)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if services.IsFatal(err) {
				return nil, err
			}
			skipped++
			logging.WarnWithContext(logger, "object sample skipped", "object_sample_skipped",
				logging.Int64("timestamp_ms", ms),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the detector command and frame extraction"),
				logging.String(logging.FieldImpact, "this timestamp contributes no objects"),
			)
		} else {
			for _, label := range labels {
				index.Add(label, ms)
			}
		}
		if progress != nil {
			progress(int(float64(i+1) / float64(total) * 100))
		}
	}
	if progress != nil && total == 0 {
		progress(100)
	}
	logger.Info("object sampling complete",
		logging.Int("sample_count", total),
		logging.Int("label_count", index.Len()),
		logging.Int("skipped_samples", skipped),
	)
	return index, nil
}

func (s *Sampler) sample(ctx context.Context, ms int64) ([]string, error) {
	frame, err := s.Frames.FrameAt(ctx, ms)
	if err != nil {
		return nil, perFrame(err, "frame")
	}
	if frame.Release != nil {
		defer frame.Release()
	}
	labels, err := s.Classifier.Labels(ctx, frame)
	if err != nil {
		return nil, perFrame(err, "classify")
	}
	return labels, nil
}

// perFrame marks an error as a skippable sample failure unless it means the
// detector itself is gone or the pass was cancelled.
func perFrame(err error, op string) error {
	switch {
	case errors.Is(err, services.ErrDetectorUnavailable),
		errors.Is(err, services.ErrTransient),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return services.Wrap(services.ErrTransient, "objects", op, "sample failed", err)
}
