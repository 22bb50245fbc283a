package config

import (
	"fmt"
	"math"
	"strings"

	"vidresume/internal/language"
	"vidresume/internal/services"
	"vidresume/internal/textutil"
)

// Validate ensures configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGeneral(); err != nil {
		return err
	}
	if err := c.validateObjects(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return configError("paths.state_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return configError("paths.log_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return configError("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateGeneral() error {
	switch c.General.ResumeMode {
	case 1, 2, 3:
	default:
		return configError(fmt.Sprintf("general.resume_mode must be 1, 2 or 3 (got %d)", c.General.ResumeMode))
	}
	if math.IsNaN(c.Scenes.Threshold) || c.Scenes.Threshold < 0 || c.Scenes.Threshold > 1 {
		return configError(fmt.Sprintf("scenes.threshold must be between 0 and 1 (got %v)", c.Scenes.Threshold))
	}
	return nil
}

func (c *Config) validateObjects() error {
	if c.Objects.Optimization {
		if c.Objects.ScenesPeriodicity <= 0 {
			return configError("objects.scenes_periodicity must be positive")
		}
		if !c.General.DetectScenes {
			return configError("objects.optimization requires general.detect_scenes")
		}
	} else if c.Objects.MillisecondsPeriodicity <= 0 {
		return configError("objects.milliseconds_periodicity must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	p := c.Subtitles.ResumePercentage
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return configError(fmt.Sprintf("subtitles.resume_percentage must be in (0, 100] (got %v)", p))
	}
	if _, err := textutil.ParseScheme(c.Subtitles.Vectoring); err != nil {
		return configError(fmt.Sprintf("subtitles.vectoring: %v", err))
	}
	if _, ok := language.Lookup(c.Subtitles.Language); !ok {
		names := make([]string, 0, len(language.All()))
		for _, lang := range language.All() {
			names = append(names, lang.Name)
		}
		return configError(fmt.Sprintf("subtitles.language %q is not supported (choose one of %s)",
			c.Subtitles.Language, strings.Join(names, ", ")))
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configError(fmt.Sprintf("logging.format must be console or json (got %q)", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configError(fmt.Sprintf("logging.level %q is not recognized", c.Logging.Level))
	}
	return nil
}

func configError(msg string) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", msg, nil)
}
