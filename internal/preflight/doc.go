// Package preflight provides readiness checks for the filesystem paths and
// external binaries a resume run depends on.
//
// These checks run in two contexts:
//   - `vidresume run` calls RunAll before starting the stages and refuses to
//     start when a check fails.
//   - `vidresume status` prints every result.
//
// Inputs are gated by the resume mode: subtitle files are only checked when
// subtitles are used, detector artifacts only when objects are used.
package preflight
