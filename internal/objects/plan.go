package objects

import "vidresume/internal/scenes"

// OptimizedTimestamps returns up to n evenly spaced interior timestamps per
// scene, s + (e-s)*i/(n+1) for i in 1..n, concatenated in scene order. Values
// that truncate onto a scene bound or repeat the previous value are skipped,
// so scenes shorter than n+1 ms yield fewer samples and [s, s+1] yields none.
func OptimizedTimestamps(list []scenes.Scene, n int) []int64 {
	if n <= 0 {
		return nil
	}
	out := make([]int64, 0, len(list)*n)
	for _, sc := range list {
		span := float64(sc.End - sc.Start)
		prev := sc.Start
		for i := 1; i <= n; i++ {
			t := sc.Start + int64(span*float64(i)/float64(n+1))
			if t <= prev || t >= sc.End {
				continue
			}
			out = append(out, t)
			prev = t
		}
	}
	return out
}

// UniformTimestamps returns 1, 1+k, 1+2k, ... strictly below durationMS.
func UniformTimestamps(durationMS int64, k int) []int64 {
	if k <= 0 || durationMS <= 1 {
		return nil
	}
	out := make([]int64, 0, durationMS/int64(k)+1)
	for t := int64(1); t < durationMS; t += int64(k) {
		out = append(out, t)
	}
	return out
}
