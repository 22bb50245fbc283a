package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidresume/internal/intervals"
	"vidresume/internal/store"
	"vidresume/internal/subtitles"
)

var showSections = []string{"scenes", "objects", "subtitles", "resume", "runs"}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:       "show [scenes|objects|subtitles|resume|runs]",
		Short:     "Display stored stage results for the configured video",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: showSections,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			video := cfg.General.VideoPath
			if video == "" {
				return fmt.Errorf("no video selected; pass --video or set general.video_path")
			}
			section := "resume"
			if len(args) == 1 {
				section = args[0]
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			return showSection(cmd, st, video, section, outFormat)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}

func showSection(cmd *cobra.Command, st *store.Store, video, section, format string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch section {
	case "scenes", "resume":
		var list []intervals.Interval
		var err error
		if section == "scenes" {
			list, err = st.Scenes(ctx, video)
		} else {
			list, err = st.Resume(ctx, video)
		}
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, format, list); ok || err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintf(out, "No %s stored for %s\n", section, video)
			return nil
		}
		var total int64
		rows := make([][]string, 0, len(list))
		for i, iv := range list {
			total += iv.Duration()
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				formatMillis(iv.Start),
				formatMillis(iv.End),
				formatMillis(iv.Duration()),
			})
		}
		fmt.Fprintln(out, tableSpec{
			Headers: []string{"#", "Start", "End", "Length"},
			Aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignRight},
			Rows:    rows,
			Footer:  []string{"", "", "Total", formatMillis(total)},
		}.Render())
		fmt.Fprintf(out, "%d %s\n", len(list), section)
		return nil

	case "objects":
		index, err := st.Objects(ctx, video)
		if err != nil {
			return err
		}
		entries := index.Entries()
		if ok, err := writeStructured(cmd, format, entries); ok || err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No objects stored for %s\n", video)
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, entry := range entries {
			first, last := "-", "-"
			if n := len(entry.Occurrences); n > 0 {
				first = formatMillis(entry.Occurrences[0])
				last = formatMillis(entry.Occurrences[n-1])
			}
			rows = append(rows, []string{
				entry.Label,
				humanize.Comma(int64(len(entry.Occurrences))),
				first,
				last,
			})
		}
		fmt.Fprintln(out, tableSpec{
			Headers: []string{"Label", "Occurrences", "First", "Last"},
			Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			Rows:    rows,
			Footer:  []string{"Total", humanize.Comma(int64(index.Samples()))},
		}.Render())
		return nil

	case "subtitles":
		sentences, err := st.Subtitles(ctx, video)
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, format, sentences); ok || err != nil {
			return err
		}
		if len(sentences) == 0 {
			fmt.Fprintf(out, "No subtitles stored for %s\n", video)
			return nil
		}
		rows := make([][]string, 0, len(sentences))
		for _, cue := range sentences {
			rows = append(rows, cueRow(cue))
		}
		fmt.Fprintln(out, tableSpec{
			Headers: []string{"Start", "End", "Score", "Sentence"},
			Aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			Rows:    rows,
		}.Render())
		return nil

	case "runs":
		runs, err := st.LatestRuns(ctx, video)
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, format, runs); ok || err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "No runs recorded for %s\n", video)
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			errText := run.ErrorKind
			if run.ErrorMessage != "" {
				errText = fmt.Sprintf("%s: %s", run.ErrorKind, run.ErrorMessage)
			}
			rows = append(rows, []string{
				run.Stage,
				string(run.Status),
				fmt.Sprintf("%d%%", run.Progress),
				humanize.Time(run.StartedAt),
				run.Duration().Round(time.Millisecond).String(),
				errText,
			})
		}
		fmt.Fprintln(out, tableSpec{
			Headers: []string{"Stage", "Status", "Progress", "Started", "Took", "Error"},
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			Rows:    rows,
		}.Render())
		return nil

	default:
		return fmt.Errorf("unknown section %q (want one of %v)", section, showSections)
	}
}

func cueRow(cue *subtitles.Cue) []string {
	row := []string{"-", "-", "-", ""}
	if cue.Start != nil {
		row[0] = formatMillis(*cue.Start)
	}
	if cue.End != nil {
		row[1] = formatMillis(*cue.End)
	}
	if cue.Score != nil {
		row[2] = strconv.Itoa(*cue.Score)
	}
	if cue.Text != nil {
		row[3] = *cue.Text
	}
	return row
}

// formatMillis renders a millisecond offset as [h:]mm:ss.mmm.
func formatMillis(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	d := time.Duration(ms) * time.Millisecond
	h := int64(d / time.Hour)
	m := int64(d/time.Minute) % 60
	s := int64(d/time.Second) % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, h, m, s, frac)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, m, s, frac)
}
