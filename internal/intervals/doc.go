// Package intervals holds the inclusive millisecond interval type shared by
// scenes, subtitle selections and resume cuts, together with the sort, merge
// and scene-snapping helpers used when composing a resume.
package intervals
