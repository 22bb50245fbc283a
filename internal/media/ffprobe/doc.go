// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect runs ffprobe; Parse decodes an already captured payload. Helper
// methods give the duration in milliseconds, the frame rate and stream
// presence used by scene detection and rendering.
package ffprobe
