package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidresume/internal/logging"
	"vidresume/internal/media/ffprobe"
	"vidresume/internal/preflight"
	"vidresume/internal/resume"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		skipPreflight bool
		save          bool
		modeFlag      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every pipeline stage once for the configured video",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openPipeline()
			if err != nil {
				return err
			}
			defer env.Close()

			if strings.TrimSpace(modeFlag) != "" {
				mode, err := resume.ParseMode(modeFlag)
				if err != nil {
					return err
				}
				env.cfg.General.ResumeMode = int(mode)
			}

			runCtx := cmd.Context()
			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(runCtx, env.cfg)); len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, result := range failed {
						names = append(names, fmt.Sprintf("%s (%s)", result.Name, result.Detail))
					}
					return fmt.Errorf("preflight failed: %s", strings.Join(names, "; "))
				}
			}
			if save && ctx.configPath != "" {
				if err := env.cfg.Save(ctx.configPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			printer := newProgressPrinter(out)
			env.coord.OnProgress(printer.Update)

			env.logger.Info("resume run started",
				logging.String(logging.FieldEventType, "run_start"),
				logging.String("video", env.cfg.General.VideoPath),
				logging.Int("resume_mode", env.cfg.General.ResumeMode),
			)
			if err := env.coord.StartAll(runCtx); err != nil {
				return err
			}
			waitErr := env.coord.Wait(runCtx)
			if runCtx.Err() != nil {
				env.coord.DeactivateAll()
			}
			printer.Finish()

			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, snap := range env.coord.Status() {
				msg := fmt.Sprintf("%s %d%%", snap.State, snap.Progress)
				if snap.Error != "" {
					msg += " " + snap.Error
				}
				fmt.Fprintln(out, renderStatusLine(snap.Name, stageKind(snap.State), msg, colorize))
			}
			if waitErr != nil {
				return waitErr
			}

			output := env.cfg.General.OutputPath
			if env.cfg.Render.Enabled && output != "" {
				if summary, ok := describeOutput(runCtx, env.cfg.FFprobeBinary(), output); ok {
					fmt.Fprintf(out, "Resume written to %s (%s)\n", output, summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip dependency checks before running")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Resume mode for this run: subtitles, objects, subtitles_and_objects or 1-3")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the effective configuration (including --video/--output) to the config file")
	return cmd
}

// describeOutput summarizes the rendered file. It falls back to the file size
// when ffprobe cannot read it.
func describeOutput(ctx context.Context, ffprobeBinary, path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	size := humanize.Bytes(uint64(info.Size()))
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path)
	if err != nil {
		return size, true
	}
	if probed := result.SizeBytes(); probed > 0 {
		size = humanize.Bytes(uint64(probed))
	}
	parts := []string{size}
	if ms := result.DurationMillis(); ms > 0 {
		parts = append(parts, (time.Duration(ms) * time.Millisecond).Round(time.Second).String())
	}
	if video, ok := result.VideoStream(); ok && video.Width > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d @ %.2f fps", video.Width, video.Height, video.FrameRate()))
	}
	return strings.Join(parts, ", "), true
}
