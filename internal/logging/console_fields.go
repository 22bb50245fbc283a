package logging

import (
	"log/slog"
	"slices"
	"strings"
)

type infoLine struct {
	label string
	value string
}

// highlightOrder lists the keys shown first at info level.
var highlightOrder = []string{
	FieldAlert,
	FieldEventType,
	FieldProgressPercent,
	FieldErrorKind,
	FieldErrorHint,
	FieldImpact,
	"error",
	"video_path",
	"scene_count",
	"sample_count",
	"label_count",
	"sentence_count",
	"selected_count",
	"interval_count",
	"output_path",
	"elapsed",
}

var fieldLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldProgressPercent: "Progress",
	FieldErrorKind:       "Error Kind",
	FieldErrorHint:       "Hint",
}

const maxInfoErrorLen = 200

// infoLines orders and labels fields for info-level records, dropping keys
// only useful when debugging.
func infoLines(fields []field) []infoLine {
	kept := make([]field, 0, len(fields))
	for _, f := range fields {
		if !debugOnly(f.key) {
			kept = append(kept, f)
		}
	}
	rank := func(key string) int {
		if i := slices.Index(highlightOrder, key); i >= 0 {
			return i
		}
		return len(highlightOrder)
	}
	slices.SortStableFunc(kept, func(a, b field) int { return rank(a.key) - rank(b.key) })

	lines := make([]infoLine, 0, len(kept))
	for _, f := range kept {
		lines = append(lines, infoLine{label: labelFor(f.key), value: infoValue(f.key, f.value)})
	}
	return lines
}

func infoValue(key string, v slog.Value) string {
	switch {
	case v.Kind() == slog.KindBool && v.Bool():
		return "yes"
	case v.Kind() == slog.KindBool:
		return "no"
	case key == FieldProgressPercent && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindFloat64):
		return renderValue(v) + "%"
	}
	s := renderValue(v)
	if key == "error" && len(s) > maxInfoErrorLen {
		s = s[:maxInfoErrorLen] + "…"
	}
	return s
}

func debugOnly(key string) bool {
	switch key {
	case FieldRunID, "args", "command", "stderr_tail":
		return true
	}
	return strings.HasSuffix(key, "_ms_list")
}

// labelFor turns snake_case keys into title case labels.
func labelFor(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	if len(words) == 0 {
		return key
	}
	for i, w := range words {
		w = strings.ToLower(w)
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
