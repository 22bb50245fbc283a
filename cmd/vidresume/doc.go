// Command vidresume builds a condensed resume of a video from its scenes,
// detected objects and subtitle summary.
//
// The pipeline runs in-process: `run` executes every stage once, `watch`
// keeps the stages alive and restarts them when the config file changes, and
// `serve` exposes stage status and control over a local HTTP API. Results are
// kept in a SQLite database under the state directory so `show` can inspect
// them afterwards.
package main
