package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	APIBind   string `toml:"api_bind"`
}

// General selects the source video, the output and the resume mode.
type General struct {
	VideoPath    string `toml:"video_path"`
	OutputPath   string `toml:"output_path"`
	ResumeMode   int    `toml:"resume_mode"`
	DetectScenes bool   `toml:"detect_scenes"`
}

// Scenes configures shot-boundary detection.
type Scenes struct {
	// Threshold is the ffmpeg scene-change score above which a cut is reported (0..1).
	Threshold float64 `toml:"threshold"`
}

// Objects configures frame sampling and the external object classifier.
type Objects struct {
	Optimization            bool     `toml:"optimization"`
	ScenesPeriodicity       int      `toml:"scenes_periodicity"`
	MillisecondsPeriodicity int      `toml:"milliseconds_periodicity"`
	Labels                  []string `toml:"labels"`
	WeightsPath             string   `toml:"weights_path"`
	ConfigPath              string   `toml:"config_path"`
	NamesPath               string   `toml:"names_path"`
	DetectorCommand         string   `toml:"detector_command"`
	DetectorArgs            []string `toml:"detector_args"`
}

// Subtitles configures subtitle loading, cleaning and ranking.
type Subtitles struct {
	Path                 string  `toml:"path"`
	ResumePercentage     float64 `toml:"resume_percentage"`
	Vectoring            string  `toml:"vectoring"`
	Language             string  `toml:"language"`
	StopwordsDir         string  `toml:"stopwords_dir"`
	RemovePunctuation    bool    `toml:"remove_punctuation"`
	PunctuationSigns     string  `toml:"punctuation_signs"`
	RemoveStopWords      bool    `toml:"remove_stopwords"`
	RemoveCapitalLetters bool    `toml:"remove_capital_letters"`
	RemoveAccents        bool    `toml:"remove_accents"`
	RemoveAll            bool    `toml:"remove_all"`
}

// Render configures the final cut of the resume video.
type Render struct {
	Enabled    bool   `toml:"enabled"`
	AudioCodec string `toml:"audio_codec"`
	VideoCodec string `toml:"video_codec"`
	// Drapto re-encodes the concatenated resume to AV1 through the drapto library.
	Drapto bool `toml:"drapto"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: state database, logs, scratch space and API bind address
//   - General: source video, output file, resume mode and scene snapping
//   - Scenes: scene-change threshold
//   - Objects: sampling plan and detector artifacts
//   - Subtitles: subtitle file, cleaning flags, vectoring and percentage
//   - Render: output encoding
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	General   General   `toml:"general"`
	Scenes    Scenes    `toml:"scenes"`
	Objects   Objects   `toml:"objects"`
	Subtitles Subtitles `toml:"subtitles"`
	Render    Render    `toml:"render"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Save writes the configuration as TOML, replacing the file atomically.
func (c *Config) Save(path string) error {
	target, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidresume.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StatePath returns the location of the SQLite hand-off database.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "vidresume.db")
}

// LogPath returns the log file written next to console output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "vidresume.log")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidresume.lock")
}

// DefaultOutputPath derives the resume file for video inside the output
// directory. It returns "" when video is empty.
func (c *Config) DefaultOutputPath(video string) string {
	if video == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(c.Paths.OutputDir, base+"_resume.mp4")
}

// FFmpegBinary returns the ffmpeg executable name used for detection and rendering.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
