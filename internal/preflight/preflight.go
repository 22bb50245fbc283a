package preflight

import (
	"context"

	"vidresume/internal/config"
	"vidresume/internal/resume"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail" yaml:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Inputs are only checked when the resume mode uses them.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFileReadable("Video", cfg.General.VideoPath),
	}

	mode := resume.Mode(cfg.General.ResumeMode)
	if mode.UsesSubtitles() {
		results = append(results, CheckFileReadable("Subtitles", cfg.Subtitles.Path))
	}
	if mode.UsesObjects() {
		results = append(results,
			CheckFileReadable("Detector weights", cfg.Objects.WeightsPath),
			CheckFileReadable("Detector config", cfg.Objects.ConfigPath),
			CheckFileReadable("Detector names", cfg.Objects.NamesPath),
		)
	}
	if ctx.Err() != nil {
		return results
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional && !status.Available {
			continue
		}
		detail := status.Command
		if status.Detail != "" {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
