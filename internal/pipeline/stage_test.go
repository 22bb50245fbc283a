package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vidresume/internal/services"
)

const testTimeout = 5 * time.Second

func waitState(t *testing.T, s *Stage, want State) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if s.Snapshot().State == want {
			return
		}
		select {
		case <-s.Changed():
		case <-time.After(10 * time.Millisecond):
		}
	}
	t.Fatalf("stage %s state = %s, want %s", s.Name(), s.Snapshot().State, want)
}

func waitDone(t *testing.T, s *Stage) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatalf("stage %s did not finish", s.Name())
	}
}

// blockingRunner blocks each pass until released or cancelled.
type blockingRunner struct {
	passes  atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context, report func(int)) error {
	b.passes.Add(1)
	report(10)
	b.started <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
		report(100)
		return nil
	}
}

func TestStageCompletes(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	s := NewStage("scenes", RunnerFunc(func(ctx context.Context, report func(int)) error {
		report(50)
		report(150)
		return nil
	}), nil)
	s.OnProgress(func(name string, pct int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, pct)
	})

	if got := s.Snapshot().State; got != StateIdle {
		t.Fatalf("initial state = %s, want idle", got)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, s)
	s.Wait()

	snap := s.Snapshot()
	if snap.State != StateCompleted || snap.Progress != 100 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if snap.RunID == "" {
		t.Fatal("expected a run id")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 50 || seen[1] != 100 {
		t.Fatalf("progress = %v, want [50 100]", seen)
	}
}

func TestStageStartWhileRunning(t *testing.T) {
	runner := newBlockingRunner()
	s := NewStage("objects", runner, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-runner.started
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(runner.release)
	waitDone(t, s)
}

func TestStageDeactivateRightAfterStart(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, report func(int)) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	})
	for i := 0; i < 50; i++ {
		s := NewStage("render", runner, nil)
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		s.Deactivate()
		waitDone(t, s)
		if got := s.Snapshot().State; got != StateCancelled {
			t.Fatalf("iteration %d: state = %s, want cancelled", i, got)
		}
	}
}

func TestStageDeactivateRightAfterRestart(t *testing.T) {
	runner := newBlockingRunner()
	s := NewStage("resume", runner, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-runner.started
	s.Restart()
	s.Deactivate()
	waitDone(t, s)
	if got := s.Snapshot().State; got != StateCancelled {
		t.Fatalf("state = %s, want cancelled", got)
	}
}

func TestStageRestartRunsNewPass(t *testing.T) {
	runner := newBlockingRunner()
	s := NewStage("subtitles", runner, nil)
	var zeros atomic.Int32
	s.OnProgress(func(_ string, pct int) {
		if pct == 0 {
			zeros.Add(1)
		}
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-runner.started
	firstRun := s.Snapshot().RunID

	s.Restart()
	<-runner.started
	if got := s.Snapshot().State; got != StateRunning {
		t.Fatalf("state after restart = %s, want running", got)
	}
	if s.Snapshot().RunID == firstRun {
		t.Fatal("expected a new run id for the restarted pass")
	}
	close(runner.release)
	waitDone(t, s)

	if got := runner.passes.Load(); got != 2 {
		t.Fatalf("passes = %d, want 2", got)
	}
	if s.Snapshot().State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.Snapshot().State)
	}
	if zeros.Load() == 0 {
		t.Fatal("expected restart to emit progress 0")
	}
}

func TestStageRestartWhenIdleStarts(t *testing.T) {
	s := NewStage("resume", RunnerFunc(func(context.Context, func(int)) error { return nil }), nil)
	s.Restart()
	waitDone(t, s)
	if s.Snapshot().State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.Snapshot().State)
	}
}

func TestStageDeactivateCancels(t *testing.T) {
	runner := newBlockingRunner()
	s := NewStage("render", runner, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-runner.started
	s.Deactivate()
	waitDone(t, s)

	snap := s.Snapshot()
	if snap.State != StateCancelled || snap.Restart {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if snap.Progress != 10 {
		t.Fatalf("progress = %d, want last reported 10", snap.Progress)
	}
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := s.WaitContext(ctx); err != nil {
		t.Fatalf("WaitContext on cancelled stage returned %v", err)
	}
}

func TestStageFailureBlocksWaiters(t *testing.T) {
	s := NewStage("scenes", RunnerFunc(func(context.Context, func(int)) error {
		return services.Wrap(services.ErrDetectorUnavailable, "scenes", "detect", "ffmpeg missing", nil)
	}), nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, s)

	snap := s.Snapshot()
	if snap.State != StateFailed || snap.ErrorKind != "detector_unavailable" {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected waiters to stay blocked, got %v", err)
	}
}

func TestStageWaitsForUpstream(t *testing.T) {
	up := newBlockingRunner()
	upstream := NewStage("scenes", up, nil)
	var ran atomic.Bool
	downstream := NewStage("objects", RunnerFunc(func(context.Context, func(int)) error {
		ran.Store(true)
		return nil
	}), nil)
	downstream.WaitFor(upstream)

	if err := upstream.Start(context.Background()); err != nil {
		t.Fatalf("Start upstream: %v", err)
	}
	if err := downstream.Start(context.Background()); err != nil {
		t.Fatalf("Start downstream: %v", err)
	}
	<-up.started
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("downstream ran before upstream completed")
	}
	close(up.release)
	waitDone(t, downstream)
	if !ran.Load() {
		t.Fatal("downstream never ran")
	}
}

func TestStageDeactivateWhileWaitingForUpstream(t *testing.T) {
	up := newBlockingRunner()
	upstream := NewStage("resume", up, nil)
	downstream := NewStage("render", RunnerFunc(func(context.Context, func(int)) error {
		return errors.New("should not run")
	}), nil)
	downstream.WaitFor(upstream)

	_ = upstream.Start(context.Background())
	_ = downstream.Start(context.Background())
	<-up.started
	downstream.Deactivate()
	waitDone(t, downstream)
	if got := downstream.Snapshot().State; got != StateCancelled {
		t.Fatalf("state = %s, want cancelled", got)
	}
	upstream.Deactivate()
	waitDone(t, upstream)
}

type recordingJournal struct {
	mu       sync.Mutex
	begun    []string
	finished []State
}

func (j *recordingJournal) Begin(_ context.Context, stage string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.begun = append(j.begun, stage)
	return "run-" + stage, nil
}

func (j *recordingJournal) Finish(_ context.Context, _ string, state State, _ int, _ error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, state)
	return nil
}

func TestStageRecordsPassesInJournal(t *testing.T) {
	journal := &recordingJournal{}
	s := NewStage("scenes", RunnerFunc(func(context.Context, func(int)) error { return nil }), nil)
	s.SetJournal(journal)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, s)
	waitState(t, s, StateCompleted)

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.begun) != 1 || journal.begun[0] != "scenes" {
		t.Fatalf("begun = %v", journal.begun)
	}
	if len(journal.finished) != 1 || journal.finished[0] != StateCompleted {
		t.Fatalf("finished = %v", journal.finished)
	}
	if got := s.Snapshot().RunID; got != "run-scenes" {
		t.Fatalf("run id = %q, want journal id", got)
	}
}
