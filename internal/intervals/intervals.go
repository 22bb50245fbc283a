package intervals

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoEnclosingScene reports a timestamp past the end of the last scene.
var ErrNoEnclosingScene = errors.New("no enclosing scene")

// Interval is an inclusive millisecond range.
type Interval struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Duration returns End minus Start in milliseconds.
func (iv Interval) Duration() int64 {
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d]", iv.Start, iv.End)
}

// Normalize drops nil entries, sorts the rest by start and merges them into
// a disjoint list. A nil input stays nil. Normalize is idempotent.
func Normalize(in []*Interval) []Interval {
	if in == nil {
		return nil
	}
	list := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv != nil {
			list = append(list, *iv)
		}
	}
	Sort(list)
	return Merge(list)
}

// Refs returns pointers to the elements of list, for use with Normalize.
func Refs(list []Interval) []*Interval {
	out := make([]*Interval, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}

// Sort orders intervals by start, keeping the input order for equal starts.
func Sort(list []Interval) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Start < list[j].Start
	})
}

// Merge collapses a start-sorted list. Two intervals are joined when the next
// one starts no later than one millisecond after the current one ends.
func Merge(sorted []Interval) []Interval {
	if len(sorted) == 0 {
		return []Interval{}
	}
	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start > cur.End+1 {
			out = append(out, cur)
			cur = next
			continue
		}
		if next.End > cur.End {
			cur.End = next.End
		}
	}
	return append(out, cur)
}

// Snap widens iv to the scenes enclosing its bounds. The start snaps to the
// start of the first scene ending at or after it, the end to the end of the
// first scene ending at or after it.
func Snap(iv Interval, scenes []Interval) (Interval, error) {
	startScene, ok := enclosing(iv.Start, scenes)
	if !ok {
		return Interval{}, fmt.Errorf("%w: start %d", ErrNoEnclosingScene, iv.Start)
	}
	endScene, ok := enclosing(iv.End, scenes)
	if !ok {
		return Interval{}, fmt.Errorf("%w: end %d", ErrNoEnclosingScene, iv.End)
	}
	return Interval{Start: startScene.Start, End: endScene.End}, nil
}

func enclosing(t int64, scenes []Interval) (Interval, bool) {
	idx := sort.Search(len(scenes), func(i int) bool {
		return scenes[i].End >= t
	})
	if idx == len(scenes) {
		return Interval{}, false
	}
	return scenes[idx], true
}
