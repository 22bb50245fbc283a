// Package objects samples video frames and records which object labels the
// classifier sees at each timestamp.
//
// Timestamps come from either the scene-optimized plan (a fixed number of
// interior samples per scene) or the uniform plan (every K milliseconds).
// Sampler folds classifier output into an Index keyed by label. The
// production classifier is an external command fed the YOLO-style weights,
// config and names artifacts plus one extracted frame.
package objects
