package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"vidresume/internal/config"
	"vidresume/internal/logging"
	"vidresume/internal/media/ffprobe"
	"vidresume/internal/objects"
	"vidresume/internal/render"
	"vidresume/internal/scenes"
	"vidresume/internal/services"
	"vidresume/internal/store"
)

// Stage names in dependency order.
const (
	StageScenes    = "scenes"
	StageObjects   = "objects"
	StageSubtitles = "subtitles"
	StageResume    = "resume"
	StageRender    = "render"
)

// StageNames lists every stage in dependency order.
var StageNames = []string{StageScenes, StageObjects, StageSubtitles, StageResume, StageRender}

// ErrUnknownStage is returned for stage names outside StageNames.
var ErrUnknownStage = errors.New("unknown stage")

// Renderer renders the stored resume of a video.
type Renderer interface {
	Render(ctx context.Context, req render.Request, progress func(render.Phase, int)) (string, error)
}

// Deps are the collaborators stage runners use. Nil fields get ffmpeg and
// command-line defaults built from the configuration.
type Deps struct {
	Store      *store.Store
	Logger     *slog.Logger
	Detector   scenes.Detector
	Probe      scenes.ProbeFunc
	Frames     func(cfg *config.Config) objects.FrameSource
	Classifier func(cfg *config.Config) (objects.Classifier, error)
	Renderer   Renderer
	HasAudio   func(ctx context.Context, videoPath string) (bool, error)
}

// Coordinator owns the five stages of a resume and their wait graph.
type Coordinator struct {
	cfg    atomic.Pointer[config.Config]
	deps   Deps
	logger *slog.Logger
	stages map[string]*Stage
	order  []*Stage
}

// NewCoordinator builds idle stages for cfg.
func NewCoordinator(cfg *config.Config, deps Deps) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	fillDefaults(cfg, &deps)

	c := &Coordinator{
		deps:   deps,
		logger: deps.Logger,
		stages: make(map[string]*Stage, len(StageNames)),
	}
	c.cfg.Store(cfg)

	runners := map[string]RunnerFunc{
		StageScenes:    c.runScenes,
		StageObjects:   c.runObjects,
		StageSubtitles: c.runSubtitles,
		StageResume:    c.runResume,
		StageRender:    c.runRender,
	}
	journal := &storeJournal{store: deps.Store, video: func() string { return c.Config().General.VideoPath }}
	for _, name := range StageNames {
		stage := NewStage(name, runners[name], logging.NewComponentLogger(deps.Logger, name))
		stage.SetJournal(journal)
		c.stages[name] = stage
		c.order = append(c.order, stage)
	}
	c.wire(cfg)
	return c, nil
}

func fillDefaults(cfg *config.Config, deps *Deps) {
	if deps.Detector == nil {
		deps.Detector = scenes.NewFFmpegDetector(cfg.FFmpegBinary())
	}
	if deps.Probe == nil {
		deps.Probe = scenes.FFprobeDuration(cfg.FFprobeBinary())
	}
	if deps.Frames == nil {
		deps.Frames = func(cfg *config.Config) objects.FrameSource {
			return &objects.FFmpegFrameSource{
				Binary:    cfg.FFmpegBinary(),
				VideoPath: cfg.General.VideoPath,
				WorkDir:   cfg.Paths.WorkDir,
			}
		}
	}
	if deps.Classifier == nil {
		deps.Classifier = func(cfg *config.Config) (objects.Classifier, error) {
			return objects.NewCommandClassifier(cfg.Objects.DetectorCommand, cfg.Objects.DetectorArgs, objects.Artifacts{
				Weights: cfg.Objects.WeightsPath,
				Config:  cfg.Objects.ConfigPath,
				Names:   cfg.Objects.NamesPath,
			})
		}
	}
	if deps.Renderer == nil {
		r := render.NewFFmpegRenderer(cfg.FFmpegBinary(), logging.NewComponentLogger(deps.Logger, StageRender))
		r.Encoder = render.DraptoEncoder{}
		deps.Renderer = r
	}
	if deps.HasAudio == nil {
		binary := cfg.FFprobeBinary()
		deps.HasAudio = func(ctx context.Context, videoPath string) (bool, error) {
			result, err := ffprobe.Inspect(ctx, binary, videoPath)
			if err != nil {
				return false, services.Wrap(services.ErrExternalTool, "render", "probe", "inspect video", err)
			}
			return result.HasAudio(), nil
		}
	}
}

// wire sets the upstream waits. Objects waits on scenes only when sampling
// is planned from the scene list.
func (c *Coordinator) wire(cfg *config.Config) {
	sc, ob, su, re, rn := c.stages[StageScenes], c.stages[StageObjects], c.stages[StageSubtitles], c.stages[StageResume], c.stages[StageRender]
	if optimizedSampling(cfg) {
		ob.WaitFor(sc)
	} else {
		ob.WaitFor()
	}
	re.WaitFor(sc, ob, su)
	rn.WaitFor(re)
}

func optimizedSampling(cfg *config.Config) bool {
	return cfg.Objects.Optimization && cfg.General.DetectScenes
}

// Config returns the configuration the next pass will read.
func (c *Coordinator) Config() *config.Config {
	return c.cfg.Load()
}

// SetConfig replaces the configuration for later passes and rewires the
// upstream waits. Running passes keep the configuration they started with.
func (c *Coordinator) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.cfg.Store(cfg)
	c.wire(cfg)
}

// Stage returns the named stage.
func (c *Coordinator) Stage(name string) (*Stage, error) {
	stage, ok := c.stages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return stage, nil
}

// Stages returns the stages in dependency order.
func (c *Coordinator) Stages() []*Stage {
	return append([]*Stage(nil), c.order...)
}

// OnProgress registers fn on every stage.
func (c *Coordinator) OnProgress(fn func(name string, pct int)) {
	for _, stage := range c.order {
		stage.OnProgress(fn)
	}
}

// StartAll starts every stage that is not already running.
func (c *Coordinator) StartAll(ctx context.Context) error {
	if err := c.deps.Store.ResetRunning(ctx); err != nil {
		c.logger.Warn("stale runs not reset",
			logging.String(logging.FieldEventType, "run_reset_failed"),
			logging.Error(err),
		)
	}
	for _, stage := range c.order {
		if err := stage.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			return err
		}
	}
	return nil
}

// RestartAll restarts every stage in dependency order.
func (c *Coordinator) RestartAll() {
	for _, stage := range c.order {
		stage.Restart()
	}
}

// DeactivateAll cancels every stage.
func (c *Coordinator) DeactivateAll() {
	for _, stage := range c.order {
		stage.Deactivate()
	}
}

// Shutdown deactivates every stage and waits for their loops to exit, so
// nothing writes to the store afterwards.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.DeactivateAll()
	for _, stage := range c.order {
		done := stage.Done()
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("stage %s still stopping: %w", stage.name, ctx.Err())
		}
	}
	return nil
}

// Status returns a snapshot of every stage in dependency order.
func (c *Coordinator) Status() []Snapshot {
	out := make([]Snapshot, 0, len(c.order))
	for _, stage := range c.order {
		out = append(out, stage.Snapshot())
	}
	return out
}

// Wait blocks until no stage is running. When a stage fails, its blocked
// consumers are deactivated and the failure is returned.
func (c *Coordinator) Wait(ctx context.Context) error {
	for {
		changed := make([]<-chan struct{}, 0, len(c.order))
		for _, stage := range c.order {
			changed = append(changed, stage.Changed())
		}
		running, failed := false, false
		for _, snap := range c.Status() {
			switch snap.State {
			case StateRunning:
				running = true
			case StateFailed:
				failed = true
			}
		}
		if failed {
			if err := c.Shutdown(ctx); err != nil {
				return err
			}
			return c.failure()
		}
		if !running {
			return nil
		}
		if err := waitAny(ctx, changed); err != nil {
			return err
		}
	}
}

// failure joins the errors of failed stages.
func (c *Coordinator) failure() error {
	var errs []error
	for _, stage := range c.order {
		stage.mu.Lock()
		if stage.state == StateFailed && stage.lastErr != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.name, stage.lastErr))
		}
		stage.mu.Unlock()
	}
	return errors.Join(errs...)
}

func waitAny(ctx context.Context, channels []<-chan struct{}) error {
	wake := make(chan struct{}, 1)
	stop := make(chan struct{})
	defer close(stop)
	for _, ch := range channels {
		go func() {
			select {
			case <-ch:
				select {
				case wake <- struct{}{}:
				default:
				}
			case <-stop:
			}
		}()
	}
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type storeJournal struct {
	store *store.Store
	video func() string
}

func (j *storeJournal) Begin(ctx context.Context, stage string) (string, error) {
	run, err := j.store.BeginRun(ctx, stage, j.video())
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (j *storeJournal) Finish(ctx context.Context, id string, state State, progress int, err error) error {
	details := services.Details(err)
	return j.store.FinishRun(ctx, id, store.RunStatus(state), progress, details.Kind, details.Message)
}
