package resume

import (
	"context"
	"fmt"
	"math"
	"sort"

	"vidresume/internal/intervals"
	"vidresume/internal/objects"
	"vidresume/internal/scenes"
	"vidresume/internal/services"
	"vidresume/internal/subtitles"
)

// ObjectHalfWindow is the margin in ms added on each side of an object occurrence.
const ObjectHalfWindow = 10

// Input gathers the upstream results a resume is composed from.
type Input struct {
	Mode         Mode
	SnapToScenes bool
	Scenes       []scenes.Scene
	Objects      *objects.Index
	Targets      []string
	Sentences    []*subtitles.Cue
	// Percentage of scored sentences to keep, 0..100.
	Percentage float64
}

// Compose produces the sorted, disjoint resume intervals. With snapping on,
// candidates are first clamped to the video span. progress receives the
// checkpoints 20, 40, 60, 80 and 100.
func Compose(ctx context.Context, in Input, progress func(int)) ([]intervals.Interval, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}
	if !in.Mode.Valid() {
		return nil, services.Wrap(services.ErrConfiguration, "resume", "compose", fmt.Sprintf("unknown mode %d", in.Mode), nil)
	}
	report(20)

	var candidates []intervals.Interval
	if in.Mode.UsesSubtitles() {
		candidates = append(candidates, SubtitleCandidates(in.Sentences, in.Percentage)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(40)

	if in.Mode.UsesObjects() {
		candidates = append(candidates, ObjectCandidates(in.Objects, in.Targets)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(60)

	if in.SnapToScenes && len(candidates) > 0 {
		if len(in.Scenes) == 0 {
			return nil, services.Wrap(services.ErrValidation, "resume", "snap", "scene list is empty", nil)
		}
		last := in.Scenes[len(in.Scenes)-1].End
		for i, c := range candidates {
			c.Start = min(max(c.Start, 0), last)
			c.End = min(max(c.End, 0), last)
			snapped, err := intervals.Snap(c, in.Scenes)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "resume", "snap", "candidate outside the video", err)
			}
			candidates[i] = snapped
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(80)

	merged := intervals.Normalize(intervals.Refs(candidates))
	report(100)
	return merged, nil
}

// SubtitleCandidates returns the bounds of the top ceil(count*percentage/100)
// scored sentences, best first. Sentences without a score or without both
// bounds are ignored.
func SubtitleCandidates(sentences []*subtitles.Cue, percentage float64) []intervals.Interval {
	scored := make([]*subtitles.Cue, 0, len(sentences))
	for _, s := range sentences {
		if s == nil || s.Score == nil {
			continue
		}
		if _, _, ok := s.Times(); !ok {
			continue
		}
		scored = append(scored, s)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})
	keep := int(math.Ceil(float64(len(scored)) * percentage / 100))
	keep = min(max(keep, 0), len(scored))

	out := make([]intervals.Interval, 0, keep)
	for _, s := range scored[:keep] {
		start, end, _ := s.Times()
		out = append(out, intervals.Interval{Start: start, End: end})
	}
	return out
}

// ObjectCandidates returns [t-10, t+10] for every occurrence of every target
// label present in the index, in index label order.
func ObjectCandidates(index *objects.Index, targets []string) []intervals.Interval {
	if index == nil || len(targets) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		wanted[t] = struct{}{}
	}
	var out []intervals.Interval
	for _, label := range index.Labels() {
		if _, ok := wanted[label]; !ok {
			continue
		}
		for _, t := range index.Occurrences(label) {
			out = append(out, intervals.Interval{Start: t - ObjectHalfWindow, End: t + ObjectHalfWindow})
		}
	}
	return out
}
