package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidresume/internal/logging"
	"vidresume/internal/services"
)

// State is the lifecycle position of a stage.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// settled reports whether consumers waiting on the stage may proceed.
func (s State) settled() bool {
	return s == StateIdle || s == StateCompleted || s == StateCancelled
}

// ErrAlreadyRunning is returned by Start while a pass is in flight.
var ErrAlreadyRunning = errors.New("stage already running")

// Runner performs one pass of a stage. report receives integer percentages.
// Implementations must return promptly once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, report func(int)) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, report func(int)) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, report func(int)) error {
	return f(ctx, report)
}

// Journal records stage passes. Begin returns the id of the new pass.
type Journal interface {
	Begin(ctx context.Context, stage string) (string, error)
	Finish(ctx context.Context, id string, state State, progress int, err error) error
}

// Snapshot is a point-in-time view of a stage.
type Snapshot struct {
	Name      string    `json:"name" yaml:"name"`
	State     State     `json:"state" yaml:"state"`
	Restart   bool      `json:"restart_requested" yaml:"restart_requested"`
	Progress  int       `json:"progress" yaml:"progress"`
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Stage runs a Runner on its own goroutine, restarting the pass on request
// and waiting for its upstream stages before each pass.
type Stage struct {
	name     string
	runner   Runner
	logger   *slog.Logger
	journal  Journal
	upstream []*Stage
	sampler  *logging.ProgressSampler

	mu        sync.Mutex
	state     State
	restart   bool
	progress  int
	runID     string
	gen       uint64
	lastErr   error
	updatedAt time.Time
	parent    context.Context
	cancel    context.CancelFunc
	changed   chan struct{}
	listeners []func(name string, pct int)
	done      chan struct{}
}

// NewStage constructs an idle stage.
func NewStage(name string, runner Runner, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		name:      name,
		runner:    runner,
		logger:    logger,
		sampler:   logging.NewProgressSampler(10),
		state:     StateIdle,
		updatedAt: time.Now(),
		changed:   make(chan struct{}),
	}
}

// Name returns the stage name.
func (s *Stage) Name() string {
	return s.name
}

// SetJournal attaches a pass recorder. Call before Start.
func (s *Stage) SetJournal(j Journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = j
}

// WaitFor sets the stages every later pass of s waits on before running.
func (s *Stage) WaitFor(upstream ...*Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upstream = append([]*Stage(nil), upstream...)
}

// OnProgress registers a progress listener. Listeners run synchronously on
// the reporting goroutine.
func (s *Stage) OnProgress(fn func(name string, pct int)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start launches a pass. It fails with ErrAlreadyRunning while one is in
// flight.
func (s *Stage) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return fmt.Errorf("%s: %w", s.name, ErrAlreadyRunning)
	}
	s.parent = ctx
	s.launchLocked()
	return nil
}

// Restart cancels the current pass and begins a new one. A stage that is not
// running is started.
func (s *Stage) Restart() {
	s.mu.Lock()
	if s.state != StateRunning {
		if s.parent == nil {
			s.parent = context.Background()
		}
		s.launchLocked()
		s.mu.Unlock()
		s.emit(0)
		return
	}
	s.restart = true
	s.gen++
	s.progress = 0
	cancel := s.cancel
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Info("stage restart requested",
		logging.String(logging.FieldEventType, "stage_restart"),
		logging.String(logging.FieldStage, s.name),
	)
	if cancel != nil {
		cancel()
	}
	s.emit(0)
}

// Deactivate cancels the current pass without restarting it.
func (s *Stage) Deactivate() {
	s.mu.Lock()
	s.restart = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the stage is idle, completed or cancelled. A failed stage
// keeps its consumers blocked.
func (s *Stage) Wait() {
	_ = s.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx.
func (s *Stage) WaitContext(ctx context.Context) error {
	for {
		s.mu.Lock()
		state := s.state
		changed := s.changed
		s.mu.Unlock()
		if state.settled() {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Changed returns a channel closed at the next state change.
func (s *Stage) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Done returns a channel closed when the current loop exits, or nil when the
// stage never started.
func (s *Stage) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Snapshot returns the current stage view.
func (s *Stage) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Name:      s.name,
		State:     s.state,
		Restart:   s.restart,
		Progress:  s.progress,
		RunID:     s.runID,
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		details := services.Details(s.lastErr)
		snap.ErrorKind = details.Kind
		snap.Error = details.Message
	}
	return snap
}

func (s *Stage) launchLocked() {
	s.state = StateRunning
	s.restart = false
	s.progress = 0
	s.lastErr = nil
	s.done = make(chan struct{})
	passCtx := s.newPassLocked(s.parent)
	s.notifyLocked()
	go s.loop(s.parent, passCtx, s.done)
}

// newPassLocked creates the context of the next pass and publishes its cancel
// func, so Deactivate and Restart reach a pass before its goroutine runs.
func (s *Stage) newPassLocked(parent context.Context) context.Context {
	passCtx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return passCtx
}

func (s *Stage) loop(parent, passCtx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s.mu.Lock()
		cancel := s.cancel
		s.gen++
		gen := s.gen
		s.progress = 0
		journal := s.journal
		upstream := append([]*Stage(nil), s.upstream...)
		s.mu.Unlock()

		runID := s.begin(parent, journal)
		err := s.pass(passCtx, runID, gen, upstream)
		cancel()

		s.mu.Lock()
		if s.restart && parent.Err() == nil {
			s.restart = false
			passCtx = s.newPassLocked(parent)
			s.mu.Unlock()
			s.finish(parent, journal, runID, StateCancelled, 0, nil)
			continue
		}
		s.cancel = nil
		s.restart = false
		var state State
		switch {
		case err == nil:
			state = StateCompleted
			s.progress = 100
		case passCtx.Err() != nil && errors.Is(err, context.Canceled):
			state = StateCancelled
			err = nil
		default:
			state = StateFailed
			s.lastErr = err
		}
		progress := s.progress
		s.state = state
		s.updatedAt = time.Now()
		s.notifyLocked()
		s.mu.Unlock()

		s.finish(parent, journal, runID, state, progress, err)
		return
	}
}

func (s *Stage) pass(ctx context.Context, runID string, gen uint64, upstream []*Stage) error {
	ctx = services.WithStage(ctx, s.name)
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	for _, up := range upstream {
		if err := up.WaitContext(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	err := s.runner.Run(ctx, func(pct int) { s.report(gen, pct) })
	switch {
	case err == nil:
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", time.Since(started)),
		)
	case ctx.Err() != nil:
		logger.Info("stage cancelled",
			logging.String(logging.FieldEventType, "stage_cancelled"),
			logging.Int(logging.FieldProgressPercent, s.Snapshot().Progress),
		)
		if !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
	default:
		details := services.Details(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String(logging.FieldAlert, "stage_failure"),
			logging.String("error_message", strings.TrimSpace(details.Message)),
			logging.String(logging.FieldErrorHint, details.Hint),
			logging.Error(err),
		)
	}
	return err
}

func (s *Stage) report(gen uint64, pct int) {
	pct = max(0, min(pct, 100))
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.progress = pct
	s.updatedAt = time.Now()
	shouldLog := s.sampler.ShouldLog(pct, s.name)
	s.mu.Unlock()

	if shouldLog {
		s.logger.Debug("stage progress",
			logging.String(logging.FieldEventType, "stage_progress"),
			logging.String(logging.FieldStage, s.name),
			logging.Int(logging.FieldProgressPercent, pct),
		)
	}
	s.emit(pct)
}

func (s *Stage) emit(pct int) {
	s.mu.Lock()
	listeners := append([]func(string, int){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(s.name, pct)
	}
}

func (s *Stage) begin(ctx context.Context, journal Journal) string {
	var id string
	if journal != nil {
		var err error
		id, err = journal.Begin(ctx, s.name)
		if err != nil {
			s.logger.Warn("stage run not recorded",
				logging.String(logging.FieldEventType, "stage_journal_failed"),
				logging.String(logging.FieldStage, s.name),
				logging.Error(err),
			)
			id = ""
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
	return id
}

func (s *Stage) finish(ctx context.Context, journal Journal, runID string, state State, progress int, err error) {
	if journal == nil {
		return
	}
	// The parent may already be cancelled on shutdown; record the outcome anyway.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if jerr := journal.Finish(ctx, runID, state, progress, err); jerr != nil {
		s.logger.Warn("stage outcome not recorded",
			logging.String(logging.FieldEventType, "stage_journal_failed"),
			logging.String(logging.FieldStage, s.name),
			logging.Error(jerr),
		)
	}
}

// notifyLocked wakes every waiter. Callers hold s.mu.
func (s *Stage) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
