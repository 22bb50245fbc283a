// Package render cuts the resume intervals out of the source video and joins
// them into the output file.
//
// FFmpegRenderer works in phases that each report their own percentage: cut
// (one re-encoded part per interval), audio (concatenated audio track), video
// (concatenated video track) and, when enabled, encode (an AV1 pass through
// the drapto library). Weighted combines the phases into a single stage
// percentage.
package render
