package pipeline

import (
	"context"
	"errors"
	"strings"

	"vidresume/internal/config"
	"vidresume/internal/language"
	"vidresume/internal/logging"
	"vidresume/internal/objects"
	"vidresume/internal/render"
	"vidresume/internal/resume"
	"vidresume/internal/scenes"
	"vidresume/internal/services"
	"vidresume/internal/subtitles"
	"vidresume/internal/textutil"
)

// videoPath returns the selected video or a configuration error.
func videoPath(cfg *config.Config, stage string) (string, error) {
	path := strings.TrimSpace(cfg.General.VideoPath)
	if path == "" {
		return "", services.Wrap(services.ErrConfiguration, stage, "select video", "no video selected", nil)
	}
	return path, nil
}

func (c *Coordinator) runScenes(ctx context.Context, report func(int)) error {
	cfg := c.Config()
	video, err := videoPath(cfg, StageScenes)
	if err != nil {
		return err
	}
	if !cfg.General.DetectScenes {
		if err := c.deps.Store.SaveScenes(ctx, video, nil); err != nil {
			return services.Wrap(services.ErrTransient, StageScenes, "persist", "save scenes", err)
		}
		report(100)
		return nil
	}

	segmenter := scenes.Segmenter{
		Detector: c.deps.Detector,
		Probe:    c.deps.Probe,
		Logger:   logging.WithContext(ctx, c.logger),
	}
	list, err := segmenter.Run(ctx, video, cfg.Scenes.Threshold, report)
	if err != nil {
		return err
	}
	if err := c.deps.Store.SaveScenes(ctx, video, list); err != nil {
		return services.Wrap(services.ErrTransient, StageScenes, "persist", "save scenes", err)
	}
	logging.WithContext(ctx, c.logger).Info("scenes detected",
		logging.String(logging.FieldEventType, "scenes_saved"),
		logging.Int("scene_count", len(list)),
	)
	return nil
}

func (c *Coordinator) runObjects(ctx context.Context, report func(int)) error {
	cfg := c.Config()
	video, err := videoPath(cfg, StageObjects)
	if err != nil {
		return err
	}
	logger := logging.WithContext(ctx, c.logger)
	if !resume.Mode(cfg.General.ResumeMode).UsesObjects() {
		if err := c.deps.Store.SaveObjects(ctx, video, objects.NewIndex()); err != nil {
			return services.Wrap(services.ErrTransient, StageObjects, "persist", "save objects", err)
		}
		report(100)
		return nil
	}

	var timestamps []int64
	if optimizedSampling(cfg) {
		list, err := c.deps.Store.Scenes(ctx, video)
		if err != nil {
			return services.Wrap(services.ErrTransient, StageObjects, "load scenes", "read stored scenes", err)
		}
		timestamps = objects.OptimizedTimestamps(list, cfg.Objects.ScenesPeriodicity)
	} else {
		duration, err := c.deps.Probe(ctx, video)
		if err != nil {
			return err
		}
		timestamps = objects.UniformTimestamps(duration, cfg.Objects.MillisecondsPeriodicity)
	}

	classifier, err := c.deps.Classifier(cfg)
	if err != nil {
		return err
	}
	sampler := objects.Sampler{
		Frames:     c.deps.Frames(cfg),
		Classifier: classifier,
		Logger:     c.logger,
	}
	logger.Debug("object sampling planned",
		logging.Int("samples", len(timestamps)),
		logging.Bool("optimized", optimizedSampling(cfg)),
	)
	index, err := sampler.Run(ctx, timestamps, report)
	if err != nil {
		return err
	}
	if err := c.deps.Store.SaveObjects(ctx, video, index); err != nil {
		return services.Wrap(services.ErrTransient, StageObjects, "persist", "save objects", err)
	}
	logger.Info("objects indexed",
		logging.String(logging.FieldEventType, "objects_saved"),
		logging.Int("label_count", index.Len()),
		logging.Int("occurrences", index.Samples()),
	)
	return nil
}

func (c *Coordinator) runSubtitles(ctx context.Context, report func(int)) error {
	cfg := c.Config()
	video, err := videoPath(cfg, StageSubtitles)
	if err != nil {
		return err
	}
	if !resume.Mode(cfg.General.ResumeMode).UsesSubtitles() {
		if err := c.deps.Store.SaveSubtitles(ctx, video, nil); err != nil {
			return services.Wrap(services.ErrTransient, StageSubtitles, "persist", "save subtitles", err)
		}
		report(100)
		return nil
	}

	opts, err := summaryOptions(cfg)
	if err != nil {
		return err
	}
	path := strings.TrimSpace(cfg.Subtitles.Path)
	if path == "" {
		return services.Wrap(services.ErrConfiguration, StageSubtitles, "load", "no subtitle file selected", nil)
	}
	cues, err := subtitles.ReadSRT(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageSubtitles, "load", "read subtitle file", err)
	}

	summarizer := subtitles.Summarizer{Logger: c.logger}
	sentences, err := summarizer.Run(ctx, cues, opts, report)
	if err != nil {
		return err
	}
	if err := c.deps.Store.SaveSubtitles(ctx, video, sentences); err != nil {
		return services.Wrap(services.ErrTransient, StageSubtitles, "persist", "save subtitles", err)
	}
	return nil
}

// summaryOptions maps the subtitle configuration onto cleaning and
// vectoring options.
func summaryOptions(cfg *config.Config) (subtitles.Options, error) {
	sub := cfg.Subtitles
	scheme, err := textutil.ParseScheme(sub.Vectoring)
	if err != nil {
		return subtitles.Options{}, services.Wrap(services.ErrConfiguration, StageSubtitles, "vectoring", "unknown vectoring scheme", err)
	}
	var stop []string
	if sub.RemoveStopWords || sub.RemoveAll {
		stop, err = language.Stopwords(sub.Language, sub.StopwordsDir)
		if err != nil {
			marker := services.ErrTransient
			if errors.Is(err, language.ErrNoStopwords) {
				marker = services.ErrConfiguration
			}
			return subtitles.Options{}, services.Wrap(marker, StageSubtitles, "stopwords", "load stopword list", err)
		}
	}
	return subtitles.Options{
		Scheme: scheme,
		Clean: subtitles.CleanOptions{
			Lowercase:         sub.RemoveCapitalLetters,
			RemoveStopwords:   sub.RemoveStopWords,
			RemovePunctuation: sub.RemovePunctuation,
			RemoveAccents:     sub.RemoveAccents,
			RemoveAll:         sub.RemoveAll,
			Stopwords:         stop,
			Punctuation:       sub.PunctuationSigns,
		},
	}, nil
}

func (c *Coordinator) runResume(ctx context.Context, report func(int)) error {
	cfg := c.Config()
	video, err := videoPath(cfg, StageResume)
	if err != nil {
		return err
	}
	st := c.deps.Store
	list, err := st.Scenes(ctx, video)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageResume, "load", "read stored scenes", err)
	}
	index, err := st.Objects(ctx, video)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageResume, "load", "read stored objects", err)
	}
	sentences, err := st.Subtitles(ctx, video)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageResume, "load", "read stored subtitles", err)
	}

	result, err := resume.Compose(ctx, resume.Input{
		Mode:         resume.Mode(cfg.General.ResumeMode),
		SnapToScenes: cfg.General.DetectScenes,
		Scenes:       list,
		Objects:      index,
		Targets:      cfg.Objects.Labels,
		Sentences:    sentences,
		Percentage:   cfg.Subtitles.ResumePercentage,
	}, report)
	if err != nil {
		return err
	}
	if err := st.SaveResume(ctx, video, result); err != nil {
		return services.Wrap(services.ErrTransient, StageResume, "persist", "save resume", err)
	}
	logging.WithContext(ctx, c.logger).Info("resume composed",
		logging.String(logging.FieldEventType, "resume_saved"),
		logging.Int("interval_count", len(result)),
	)
	return nil
}

func (c *Coordinator) runRender(ctx context.Context, report func(int)) error {
	cfg := c.Config()
	video, err := videoPath(cfg, StageRender)
	if err != nil {
		return err
	}
	if !cfg.Render.Enabled {
		report(100)
		return nil
	}
	list, err := c.deps.Store.Resume(ctx, video)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageRender, "load", "read stored resume", err)
	}
	hasAudio, err := c.deps.HasAudio(ctx, video)
	if err != nil {
		return err
	}
	req := render.Request{
		VideoPath:  video,
		OutputPath: cfg.General.OutputPath,
		Intervals:  list,
		WorkDir:    cfg.Paths.WorkDir,
		AudioCodec: cfg.Render.AudioCodec,
		VideoCodec: cfg.Render.VideoCodec,
		HasAudio:   hasAudio,
		AV1:        cfg.Render.Drapto,
	}
	_, err = c.deps.Renderer.Render(ctx, req, render.Weighted(req.Phases(), report))
	return err
}
