package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return err
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	c.General.VideoPath = strings.TrimSpace(c.General.VideoPath)
	if c.General.VideoPath == "" {
		c.General.VideoPath = strings.TrimSpace(os.Getenv("VIDRESUME_VIDEO"))
	}
	if c.General.VideoPath, err = expandPath(c.General.VideoPath); err != nil {
		return err
	}
	c.General.OutputPath = strings.TrimSpace(c.General.OutputPath)
	if c.General.OutputPath == "" {
		c.General.OutputPath = c.DefaultOutputPath(c.General.VideoPath)
	}
	if c.General.OutputPath, err = expandPath(c.General.OutputPath); err != nil {
		return err
	}

	if c.Objects.WeightsPath, err = expandPath(strings.TrimSpace(c.Objects.WeightsPath)); err != nil {
		return err
	}
	if c.Objects.ConfigPath, err = expandPath(strings.TrimSpace(c.Objects.ConfigPath)); err != nil {
		return err
	}
	if c.Objects.NamesPath, err = expandPath(strings.TrimSpace(c.Objects.NamesPath)); err != nil {
		return err
	}
	c.Objects.DetectorCommand = strings.TrimSpace(c.Objects.DetectorCommand)
	if c.Objects.DetectorCommand == "" {
		c.Objects.DetectorCommand = defaultDetectorCommand
	}
	c.Objects.Labels = normalizeLabels(c.Objects.Labels)

	if c.Subtitles.Path, err = expandPath(strings.TrimSpace(c.Subtitles.Path)); err != nil {
		return err
	}
	if c.Subtitles.StopwordsDir, err = expandPath(strings.TrimSpace(c.Subtitles.StopwordsDir)); err != nil {
		return err
	}
	c.Subtitles.Vectoring = strings.ToLower(strings.TrimSpace(c.Subtitles.Vectoring))
	if c.Subtitles.Vectoring == "" {
		c.Subtitles.Vectoring = defaultVectoring
	}
	c.Subtitles.Language = strings.ToLower(strings.TrimSpace(c.Subtitles.Language))
	if c.Subtitles.Language == "" {
		c.Subtitles.Language = defaultLanguage
	}
	if c.Subtitles.PunctuationSigns == "" {
		c.Subtitles.PunctuationSigns = defaultPunctuationSigns
	}

	c.Render.AudioCodec = strings.TrimSpace(c.Render.AudioCodec)
	if c.Render.AudioCodec == "" {
		c.Render.AudioCodec = defaultAudioCodec
	}
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	if c.Render.VideoCodec == "" {
		c.Render.VideoCodec = defaultVideoCodec
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
