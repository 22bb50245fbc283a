package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"vidresume/internal/intervals"
	"vidresume/internal/objects"
	"vidresume/internal/scenes"
	"vidresume/internal/store"
	"vidresume/internal/subtitles"
	"vidresume/internal/testsupport"
)

func TestScenesRoundTripReplacesPreviousPass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := []scenes.Scene{{Start: 0, End: 1000}, {Start: 1000, End: 5000}}
	if err := st.SaveScenes(ctx, "/v/a.mp4", first); err != nil {
		t.Fatalf("SaveScenes failed: %v", err)
	}
	second := []scenes.Scene{{Start: 0, End: 5000}}
	if err := st.SaveScenes(ctx, "/v/a.mp4", second); err != nil {
		t.Fatalf("SaveScenes failed: %v", err)
	}

	got, err := st.Scenes(ctx, "/v/a.mp4")
	if err != nil {
		t.Fatalf("Scenes failed: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Fatalf("expected replaced scene list, got %#v", got)
	}

	other, err := st.Scenes(ctx, "/v/b.mp4")
	if err != nil {
		t.Fatalf("Scenes failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no scenes for unknown video, got %#v", other)
	}
}

func TestResumeRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	want := []intervals.Interval{{Start: 10, End: 30}, {Start: 50, End: 90}}
	if err := st.SaveResume(ctx, "/v/a.mp4", want); err != nil {
		t.Fatalf("SaveResume failed: %v", err)
	}
	got, err := st.Resume(ctx, "/v/a.mp4")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestObjectsPreserveLabelAndSampleOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	index := objects.NewIndex()
	index.Add("person", 500)
	index.Add("dog", 700)
	index.Add("person", 900)

	if err := st.SaveObjects(ctx, "/v/a.mp4", index); err != nil {
		t.Fatalf("SaveObjects failed: %v", err)
	}
	got, err := st.Objects(ctx, "/v/a.mp4")
	if err != nil {
		t.Fatalf("Objects failed: %v", err)
	}
	labels := got.Labels()
	if len(labels) != 2 || labels[0] != "person" || labels[1] != "dog" {
		t.Fatalf("unexpected label order %v", labels)
	}
	occ := got.Occurrences("person")
	if len(occ) != 2 || occ[0] != 500 || occ[1] != 900 {
		t.Fatalf("unexpected person occurrences %v", occ)
	}
}

func TestSubtitlesKeepNullableFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sentences := []*subtitles.Cue{
		{Text: subtitles.Ptr("Hello there."), Start: subtitles.Ptr(int64(0)), End: subtitles.Ptr(int64(900)), Score: subtitles.Ptr(2)},
		{Start: subtitles.Ptr(int64(1000)), End: subtitles.Ptr(int64(1500))},
	}
	if err := st.SaveSubtitles(ctx, "/v/a.mp4", sentences); err != nil {
		t.Fatalf("SaveSubtitles failed: %v", err)
	}
	got, err := st.Subtitles(ctx, "/v/a.mp4")
	if err != nil {
		t.Fatalf("Subtitles failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
	if got[0].Text == nil || *got[0].Text != "Hello there." || got[0].Score == nil || *got[0].Score != 2 {
		t.Fatalf("unexpected first sentence %#v", got[0])
	}
	if got[1].Text != nil || got[1].Score != nil {
		t.Fatalf("expected nil text and score, got %#v", got[1])
	}
	if got[1].Start == nil || *got[1].Start != 1000 {
		t.Fatalf("unexpected start %#v", got[1].Start)
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := st.BeginRun(ctx, "scenes", "/v/a.mp4")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID == "" || run.Status != store.RunRunning {
		t.Fatalf("unexpected run %#v", run)
	}
	if err := st.FinishRun(ctx, run.ID, store.RunFailed, 40, "external_tool", "ffmpeg exited 1"); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	fetched, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if fetched == nil || fetched.Status != store.RunFailed || fetched.Progress != 40 {
		t.Fatalf("unexpected fetched run %#v", fetched)
	}
	if fetched.ErrorKind != "external_tool" || fetched.FinishedAt == nil {
		t.Fatalf("expected error kind and finish time, got %#v", fetched)
	}

	missing, err := st.GetRun(ctx, "nope")
	if err != nil {
		t.Fatalf("GetRun missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown run, got %#v", missing)
	}
}

func TestLatestRunsReturnsNewestPerStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	old, err := st.BeginRun(ctx, "scenes", "/v/a.mp4")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := st.FinishRun(ctx, old.ID, store.RunCancelled, 10, "", ""); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	newer, err := st.BeginRun(ctx, "scenes", "/v/a.mp4")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if _, err := st.BeginRun(ctx, "subtitles", "/v/a.mp4"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	runs, err := st.LatestRuns(ctx, "/v/a.mp4")
	if err != nil {
		t.Fatalf("LatestRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Stage == "scenes" && r.ID != newer.ID {
			t.Fatalf("expected newest scenes run %s, got %s", newer.ID, r.ID)
		}
	}

	videos, err := st.Videos(ctx)
	if err != nil {
		t.Fatalf("Videos failed: %v", err)
	}
	if len(videos) != 1 || videos[0] != "/v/a.mp4" {
		t.Fatalf("unexpected videos %v", videos)
	}
}

func TestResetRunningCancelsLeftovers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := st.BeginRun(ctx, "objects", "/v/a.mp4")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := st.ResetRunning(ctx); err != nil {
		t.Fatalf("ResetRunning failed: %v", err)
	}
	fetched, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if fetched.Status != store.RunCancelled {
		t.Fatalf("expected cancelled, got %s", fetched.Status)
	}
}

func TestReopenKeepsResults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "vidresume.db")
	st, err := store.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := st.SaveScenes(context.Background(), "/v/a.mp4", []scenes.Scene{{Start: 0, End: 10}}); err != nil {
		t.Fatalf("SaveScenes failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Scenes(context.Background(), "/v/a.mp4")
	if err != nil {
		t.Fatalf("Scenes failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected persisted scene, got %#v", got)
	}
	if reopened.Path() != dbPath {
		t.Fatalf("Path() = %q, want %q", reopened.Path(), dbPath)
	}
}

func TestCancelledContextAbortsSave(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.SaveScenes(ctx, "/v/a.mp4", []scenes.Scene{{Start: 0, End: 10}})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenPathRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = reopened.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	if _, err := store.OpenPath(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
