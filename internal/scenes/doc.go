// Package scenes splits a video into contiguous shots.
//
// A Detector reports cut points (ffmpeg's scene score filter in production)
// and a Builder turns them into scenes that cover [0, duration] with no gaps
// or overlaps: each scene ends at a cut and the next starts one millisecond
// later. Segmenter ties probing, detection and building together for the
// scenes pipeline stage.
package scenes
