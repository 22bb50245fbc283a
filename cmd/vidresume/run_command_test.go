package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"vidresume/internal/config"
	"vidresume/internal/logging"
	"vidresume/internal/pipeline"
	"vidresume/internal/preflight"
	"vidresume/internal/testsupport"
)

func TestRunRefusesSecondInstance(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithVideo("movie.mkv"))
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, []string{"run", "--skip-preflight"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestRunFailsPreflightWithoutVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithVideo("movie.mkv"), testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, []string{"status", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	found := map[string]bool{}
	for _, r := range results {
		found[r.Name] = r.Passed
	}
	if !found["State directory"] || !found["Video"] {
		t.Fatalf("expected state directory and video checks to pass: %+v", results)
	}
}

func TestVideoFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--video", "/tmp/other.mkv", "status", "--format", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "/tmp/other.mkv")
}

func TestProgressPrinterCheckpoints(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	for _, pct := range []int{0, 10, 24, 25, 60, 99, 100} {
		p.Update(pipeline.StageScenes, pct)
	}
	p.Finish()
	want := "scenes: 0%\nscenes: 25%\nscenes: 60%\nscenes: 99%\nscenes: 100%\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	p.Reset()
	p.Update(pipeline.StageScenes, 0)
	if buf.String() != "scenes: 0%\n" {
		t.Fatalf("expected restart to print again, got %q", buf.String())
	}
}

func TestConfigWatcherRelevantEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSubtitles("1\n00:00:01,000 --> 00:00:02,000\nHi.\n"))
	st := testsupport.MustOpenStore(t, cfg)
	coord, err := pipeline.NewCoordinator(cfg, pipeline.Deps{Store: st})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	w := &configWatcher{configPath: "/etc/vidresume/config.toml", coord: coord, logger: logging.NewNop()}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"config write", fsnotify.Event{Name: "/etc/vidresume/config.toml", Op: fsnotify.Write}, true},
		{"config rename", fsnotify.Event{Name: "/etc/vidresume/config.toml", Op: fsnotify.Rename}, true},
		{"config chmod", fsnotify.Event{Name: "/etc/vidresume/config.toml", Op: fsnotify.Chmod}, false},
		{"subtitles create", fsnotify.Event{Name: cfg.Subtitles.Path, Op: fsnotify.Create}, true},
		{"other file", fsnotify.Event{Name: "/etc/vidresume/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Fatalf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestConfigWatcherKeepsConfigOnReloadError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	coord, err := pipeline.NewCoordinator(cfg, pipeline.Deps{Store: st})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	restarted := false
	w := &configWatcher{
		configPath: "config.toml",
		reload: func() (*config.Config, string, error) {
			return nil, "", errors.New("threshold out of range")
		},
		coord:     coord,
		logger:    logging.NewNop(),
		onRestart: func() { restarted = true },
	}
	w.apply()
	if coord.Config() != cfg {
		t.Fatal("config replaced after failed reload")
	}
	if restarted {
		t.Fatal("stages restarted after failed reload")
	}
	for _, snap := range coord.Status() {
		if snap.State != pipeline.StateIdle {
			t.Fatalf("stage %s state = %s", snap.Name, snap.State)
		}
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithVideo("movie.mkv"))
	_, _, err := runCLI(t, []string{"run", "--skip-preflight", "--mode", "everything"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown resume mode") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestDescribeOutputFallsBackToSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.mp4")
	testsupport.WriteFile(t, path, 2000)

	got, ok := describeOutput(context.Background(), filepath.Join(dir, "missing-ffprobe"), path)
	if !ok || got != "2.0 kB" {
		t.Fatalf("describeOutput = %q, %v", got, ok)
	}
	if _, ok := describeOutput(context.Background(), "ffprobe", filepath.Join(dir, "absent.mp4")); ok {
		t.Fatal("expected no summary for a missing file")
	}
}
