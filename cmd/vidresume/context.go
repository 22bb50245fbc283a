package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vidresume/internal/config"
	"vidresume/internal/logging"
	"vidresume/internal/pipeline"
	"vidresume/internal/store"
)

type commandContext struct {
	configFlag *string
	videoFlag  *string
	outputFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, videoFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		videoFlag:  videoFlag,
		outputFlag: outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, err := c.loadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// loadConfig reads the configuration from disk and applies flag overrides.
// It bypasses the cached value so `watch` can reload.
func (c *commandContext) loadConfig() (*config.Config, string, error) {
	cfg, resolved, _, err := config.Load(flagValue(c.configFlag))
	if err != nil {
		return nil, "", err
	}
	if video := flagValue(c.videoFlag); video != "" {
		expanded, err := config.ExpandPath(video)
		if err != nil {
			return nil, "", fmt.Errorf("resolve video path: %w", err)
		}
		cfg.General.VideoPath = expanded
		cfg.General.OutputPath = cfg.DefaultOutputPath(expanded)
	}
	if output := flagValue(c.outputFlag); output != "" {
		expanded, err := config.ExpandPath(output)
		if err != nil {
			return nil, "", fmt.Errorf("resolve output path: %w", err)
		}
		cfg.General.OutputPath = expanded
	}
	return cfg, resolved, nil
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// pipelineEnv bundles the long-lived objects a pipeline command needs.
type pipelineEnv struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	coord  *pipeline.Coordinator
	lock   *flock.Flock
}

// stopTimeout bounds how long Close waits for stage loops to unwind.
const stopTimeout = 30 * time.Second

// stop cancels every stage and waits for its loop to exit.
func (e *pipelineEnv) stop() {
	if e.coord == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := e.coord.Shutdown(ctx); err != nil {
		e.logger.Warn("pipeline did not stop cleanly",
			logging.String(logging.FieldEventType, "pipeline_stop_timeout"),
			logging.Error(err),
		)
	}
}

func (e *pipelineEnv) Close() {
	e.stop()
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
}

// openPipeline acquires the single-instance lock, opens the store and wires a
// coordinator for the current config.
func (c *commandContext) openPipeline() (*pipelineEnv, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another vidresume instance is already running")
	}

	st, err := store.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open store: %w", err)
	}
	coord, err := pipeline.NewCoordinator(cfg, pipeline.Deps{Store: st, Logger: logger})
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return &pipelineEnv{cfg: cfg, store: st, logger: logger, coord: coord, lock: lock}, nil
}

// skipConfigAnnotation marks commands that run without loading a config.
const skipConfigAnnotation = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
