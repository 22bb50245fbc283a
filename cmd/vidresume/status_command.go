package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidresume/internal/language"
	"vidresume/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check external tools, paths and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if ok, err := writeStructured(cmd, outFormat, results); ok || err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, displayOr(ctx.configPath, "defaults"), colorize))
			fmt.Fprintln(out, renderStatusLine("Video", statusInfo, displayOr(cfg.General.VideoPath, "not set"), colorize))
			fmt.Fprintln(out, renderStatusLine("Resume mode", statusInfo, fmt.Sprintf("%d", cfg.General.ResumeMode), colorize))
			lang := fmt.Sprintf("%s (%s)", language.DisplayName(cfg.Subtitles.Language), language.ToISO2(cfg.Subtitles.Language))
			fmt.Fprintln(out, renderStatusLine("Subtitle language", statusInfo, lang, colorize))
			fmt.Fprintln(out, renderStatusLine("Render", statusInfo, yesNo(cfg.Render.Enabled), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}

func displayOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
