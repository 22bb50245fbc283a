package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidresume/internal/config"
	"vidresume/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIDRESUME_VIDEO", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "vidresume", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".local", "share", "vidresume"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.General.ResumeMode != 3 {
		t.Fatalf("expected resume mode 3, got %d", cfg.General.ResumeMode)
	}
	if cfg.Subtitles.Vectoring != "tf_idf_smooth_l2" {
		t.Fatalf("unexpected vectoring default: %q", cfg.Subtitles.Vectoring)
	}
	if cfg.General.OutputPath != "" {
		t.Fatalf("expected empty output path without a video, got %q", cfg.General.OutputPath)
	}
	if cfg.StatePath() != filepath.Join(cfg.Paths.StateDir, "vidresume.db") {
		t.Fatalf("unexpected state path: %q", cfg.StatePath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[general]
video_path = "~/movies/film.mkv"
resume_mode = 1

[scenes]
threshold = 0.45

[subtitles]
vectoring = " TF_L1 "
language = "Spanish"
resume_percentage = 35

[objects]
labels = ["person", " person ", "dog", ""]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.General.VideoPath != filepath.Join(tempHome, "movies", "film.mkv") {
		t.Fatalf("unexpected video path: %q", cfg.General.VideoPath)
	}
	wantOutput := filepath.Join(cfg.Paths.OutputDir, "film_resume.mp4")
	if cfg.General.OutputPath != wantOutput {
		t.Fatalf("unexpected output path: got %q want %q", cfg.General.OutputPath, wantOutput)
	}
	if cfg.Scenes.Threshold != 0.45 {
		t.Fatalf("unexpected threshold: %v", cfg.Scenes.Threshold)
	}
	if cfg.Subtitles.Vectoring != "tf_l1" || cfg.Subtitles.Language != "spanish" {
		t.Fatalf("expected normalized subtitle options, got %q %q", cfg.Subtitles.Vectoring, cfg.Subtitles.Language)
	}
	if got := strings.Join(cfg.Objects.Labels, ","); got != "person,dog" {
		t.Fatalf("unexpected labels: %q", got)
	}
}

func TestLoadUsesVideoFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	video := filepath.Join(t.TempDir(), "clip.mp4")
	t.Setenv("VIDRESUME_VIDEO", video)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.General.VideoPath != video {
		t.Fatalf("expected video from env, got %q", cfg.General.VideoPath)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"resume mode", func(c *config.Config) { c.General.ResumeMode = 4 }, "resume_mode"},
		{"threshold", func(c *config.Config) { c.Scenes.Threshold = 1.5 }, "threshold"},
		{"percentage", func(c *config.Config) { c.Subtitles.ResumePercentage = -1 }, "resume_percentage"},
		{"zero percentage", func(c *config.Config) { c.Subtitles.ResumePercentage = 0 }, "resume_percentage"},
		{"percentage above 100", func(c *config.Config) { c.Subtitles.ResumePercentage = 100.5 }, "resume_percentage"},
		{"vectoring", func(c *config.Config) { c.Subtitles.Vectoring = "word2vec" }, "vectoring"},
		{"language", func(c *config.Config) { c.Subtitles.Language = "klingon" }, "language"},
		{"scene periodicity", func(c *config.Config) { c.Objects.ScenesPeriodicity = 0 }, "scenes_periodicity"},
		{"ms periodicity", func(c *config.Config) {
			c.Objects.Optimization = false
			c.Objects.MillisecondsPeriodicity = 0
		}, "milliseconds_periodicity"},
		{"optimization without scenes", func(c *config.Config) { c.General.DetectScenes = false }, "detect_scenes"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Subtitles.ResumePercentage = 42
	cfg.Objects.Labels = []string{"cat"}

	path := filepath.Join(t.TempDir(), "saved.toml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected saved config to exist")
	}
	if loaded.Subtitles.ResumePercentage != 42 || len(loaded.Objects.Labels) != 1 || loaded.Objects.Labels[0] != "cat" {
		t.Fatalf("unexpected loaded values: %+v", loaded.Subtitles)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.OutputDir, cfg.Paths.WorkDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q", dir)
		}
	}
}
