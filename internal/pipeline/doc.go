// Package pipeline runs the resume stages as restartable workers.
//
// A Stage owns one goroutine per pass. Each pass gets a fresh child context:
// Restart cancels it and begins a new pass that re-reads the configuration,
// Deactivate cancels it for good. Before running, a pass waits for its
// upstream stages to settle (idle, completed or cancelled); a failed
// upstream keeps its consumers blocked until they are deactivated.
//
// The Coordinator builds the scenes, objects, subtitles, resume and render
// stages, wires their waits from the configuration and hands results between
// them through the SQLite store. Every pass is journaled as a store run.
package pipeline
