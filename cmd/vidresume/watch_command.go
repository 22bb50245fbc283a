package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"vidresume/internal/config"
	"vidresume/internal/logging"
	"vidresume/internal/pipeline"
)

const watchDebounce = 300 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline and restart stages when the config or subtitles change",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openPipeline()
			if err != nil {
				return err
			}
			defer env.Close()
			if ctx.configPath == "" {
				return errors.New("watch requires a config file path")
			}

			runCtx := cmd.Context()
			printer := newProgressPrinter(cmd.OutOrStdout())
			env.coord.OnProgress(printer.Update)
			if err := env.coord.StartAll(runCtx); err != nil {
				return err
			}

			w := &configWatcher{
				configPath: ctx.configPath,
				reload:     ctx.loadConfig,
				coord:      env.coord,
				logger:     logging.NewComponentLogger(env.logger, "watch"),
				onRestart:  printer.Reset,
			}
			err = w.Run(runCtx)
			env.stop()
			printer.Finish()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// configWatcher restarts coordinator stages when watched files change.
type configWatcher struct {
	configPath string
	reload     func() (*config.Config, string, error)
	coord      *pipeline.Coordinator
	logger     *slog.Logger
	onRestart  func()
}

// Run watches until ctx is cancelled. The parent directories are watched so
// editors that replace files atomically are still observed.
func (w *configWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]struct{}{}
	for _, path := range w.watchedFiles() {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("add watch path: %w", err)
		}
	}
	w.logger.Info("watching for changes",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("config", w.configPath),
	)

	var pending *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(watchDebounce)
			} else {
				pending.Reset(watchDebounce)
			}
			fire = pending.C

		case <-fire:
			fire = nil
			w.apply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "changes may be missed"),
			)
		}
	}
}

func (w *configWatcher) watchedFiles() []string {
	files := []string{w.configPath}
	if sub := w.coord.Config().Subtitles.Path; sub != "" {
		files = append(files, sub)
	}
	return files
}

func (w *configWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, path := range w.watchedFiles() {
		if name == filepath.Clean(path) {
			return true
		}
	}
	return false
}

// apply reloads the configuration and restarts every stage. An invalid file
// keeps the previous configuration.
func (w *configWatcher) apply() {
	cfg, _, err := w.reload()
	if err != nil {
		logging.WarnWithContext(w.logger, "config reload failed", "config_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous configuration kept"),
			logging.String(logging.FieldErrorHint, "fix the config file and save it again"),
		)
		return
	}
	w.coord.SetConfig(cfg)
	if w.onRestart != nil {
		w.onRestart()
	}
	w.coord.RestartAll()
	w.logger.Info("stages restarted after change",
		logging.String(logging.FieldEventType, "watch_restart"),
		logging.String("video", cfg.General.VideoPath),
	)
}
