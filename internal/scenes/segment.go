package scenes

import "vidresume/internal/intervals"

// Scene is a contiguous shot interval in milliseconds.
type Scene = intervals.Interval

// Builder turns a stream of cut points into contiguous scenes.
type Builder struct {
	before int64
	scenes []Scene
}

// Add records a cut at ms, closing the scene [before, cut]. A cut equal to the
// current scene start yields a one-millisecond scene; earlier cuts are ignored.
func (b *Builder) Add(cut int64) {
	if cut < b.before {
		return
	}
	b.scenes = append(b.scenes, Scene{Start: b.before, End: cut})
	b.before = cut + 1
}

// Count returns the number of closed scenes so far.
func (b *Builder) Count() int {
	return len(b.scenes)
}

// Finish closes the last scene at durationMS and returns the list. Cuts at or
// beyond the duration are dropped so the list always ends at durationMS.
func (b *Builder) Finish(durationMS int64) []Scene {
	out := make([]Scene, 0, len(b.scenes)+1)
	before := int64(0)
	for _, s := range b.scenes {
		if s.End >= durationMS {
			break
		}
		out = append(out, s)
		before = s.End + 1
	}
	return append(out, Scene{Start: before, End: durationMS})
}

// Segment builds the scene list for a video of durationMS with the given cuts.
func Segment(cuts []int64, durationMS int64) []Scene {
	var b Builder
	for _, cut := range cuts {
		b.Add(cut)
	}
	return b.Finish(durationMS)
}
