package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"vidresume/internal/api"
	"vidresume/internal/config"
	"vidresume/internal/logs"
	"vidresume/internal/objects"
	"vidresume/internal/pipeline"
	"vidresume/internal/store"
	"vidresume/internal/testsupport"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
The ship leaves the harbor.

2
00:00:03,000 --> 00:00:04,000
Storm clouds gather overhead.
`

type fakeDetector struct{}

func (fakeDetector) Detect(_ context.Context, _ string, _ float64, onCut func(int64), _ func(int64)) error {
	onCut(2500)
	return nil
}

type noFrames struct{}

func (noFrames) FrameAt(_ context.Context, ms int64) (objects.Frame, error) {
	return objects.Frame{Timestamp: ms}, nil
}

type noLabels struct{}

func (noLabels) Labels(context.Context, objects.Frame) ([]string, error) { return nil, nil }

func newServer(t *testing.T) (*api.Server, *pipeline.Coordinator, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithVideo("clip.mp4"),
		testsupport.WithSubtitles(sampleSRT),
		testsupport.WithResumeMode(1),
	)
	cfg.Render.Enabled = false
	st := testsupport.MustOpenStore(t, cfg)
	coord, err := pipeline.NewCoordinator(cfg, pipeline.Deps{
		Store:      st,
		Detector:   fakeDetector{},
		Probe:      func(context.Context, string) (int64, error) { return 5000, nil },
		Frames:     func(*config.Config) objects.FrameSource { return noFrames{} },
		Classifier: func(*config.Config) (objects.Classifier, error) { return noLabels{}, nil },
		HasAudio:   func(context.Context, string) (bool, error) { return false, nil },
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		coord.DeactivateAll()
		cancel()
	})
	return api.NewServer(ctx, coord, st, nil), coord, st, cfg
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	var body api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.PID == 0 {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestStatusBeforeStart(t *testing.T) {
	srv, _, _, cfg := newServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body api.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.VideoPath != cfg.General.VideoPath || body.ResumeMode != 1 {
		t.Fatalf("unexpected header fields %+v", body)
	}
	if len(body.Stages) != len(pipeline.StageNames) {
		t.Fatalf("expected %d stages, got %d", len(pipeline.StageNames), len(body.Stages))
	}
	for _, stage := range body.Stages {
		if stage.State != string(pipeline.StateIdle) {
			t.Fatalf("stage %s state = %s", stage.Name, stage.State)
		}
	}
	if len(body.Runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(body.Runs))
	}
}

func TestStageActions(t *testing.T) {
	srv, coord, _, _ := newServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/stages/bogus/start")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown stage status = %d", rec.Code)
	}
	var apiErr api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil || apiErr.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/stages/"+pipeline.StageScenes+"/start")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var action api.StageActionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &action); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if action.Stage != pipeline.StageScenes || action.Action != "start" {
		t.Fatalf("unexpected action %+v", action)
	}

	stage, err := coord.Stage(pipeline.StageScenes)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stage.WaitContext(ctx); err != nil {
		t.Fatalf("WaitContext failed: %v", err)
	}

	rec = doRequest(t, router, http.MethodPost, "/stages/"+pipeline.StageScenes+"/deactivate")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("deactivate status = %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/stages/"+pipeline.StageScenes+"/start"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET on action route = %d", rec.Code)
	}
}

func TestStatusAfterRun(t *testing.T) {
	srv, coord, _, _ := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := coord.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := coord.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	rec := doRequest(t, srv.Router(), http.MethodGet, "/status")
	var body api.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != len(pipeline.StageNames) {
		t.Fatalf("expected %d runs, got %d", len(pipeline.StageNames), len(body.Runs))
	}
	for _, run := range body.Runs {
		if run.Status != string(store.RunCompleted) || run.FinishedAt == "" {
			t.Fatalf("unexpected run %+v", run)
		}
	}
	for _, stage := range body.Stages {
		if stage.Progress != 100 {
			t.Fatalf("stage %s progress = %d", stage.Name, stage.Progress)
		}
	}

	rec = doRequest(t, srv.Router(), http.MethodGet, "/runs/"+body.Runs[0].ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d: %s", rec.Code, rec.Body.String())
	}
	var run api.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ID != body.Runs[0].ID || run.Stage != body.Runs[0].Stage {
		t.Fatalf("run = %+v, want %+v", run, body.Runs[0])
	}
	if rec := doRequest(t, srv.Router(), http.MethodGet, "/runs/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing run status = %d", rec.Code)
	}

	rec = doRequest(t, srv.Router(), http.MethodGet, "/videos")
	var videos api.VideosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &videos); err != nil {
		t.Fatalf("decode videos: %v", err)
	}
	if len(videos.Videos) != 1 || videos.Videos[0] != body.VideoPath {
		t.Fatalf("videos = %v, want [%s]", videos.Videos, body.VideoPath)
	}
}

func TestLogs(t *testing.T) {
	srv, _, _, cfg := newServer(t)
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "2026-01-02 10:00:00 INFO [scenes] scenes – stage started\n" +
		"2026-01-02 10:00:01 INFO [render] render – stage started\n"
	if err := os.WriteFile(cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	rec := doRequest(t, srv.Router(), http.MethodGet, "/logs?stage=render")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body logs.TailResult
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Lines) != 1 || body.Offset != int64(len(content)) {
		t.Fatalf("unexpected tail %+v", body)
	}

	if rec := doRequest(t, srv.Router(), http.MethodGet, "/logs?lines=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad lines status = %d", rec.Code)
	}
}
