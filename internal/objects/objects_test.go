package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vidresume/internal/scenes"
	"vidresume/internal/services"
)

func TestOptimizedTimestamps(t *testing.T) {
	list := []scenes.Scene{{Start: 0, End: 1000}, {Start: 1001, End: 4001}}
	got := OptimizedTimestamps(list, 3)
	want := []int64{250, 500, 750, 1751, 2501, 3251}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OptimizedTimestamps = %v, want %v", got, want)
	}
	for i, ts := range got {
		sc := list[i/3]
		if ts <= sc.Start || ts >= sc.End {
			t.Fatalf("timestamp %d not strictly inside %v", ts, sc)
		}
	}
	if OptimizedTimestamps(list, 0) != nil {
		t.Fatal("expected no timestamps for zero periodicity")
	}
}

func TestOptimizedTimestampsInteriorOnly(t *testing.T) {
	tests := []struct {
		name  string
		scene scenes.Scene
		want  []int64
	}{
		{"hundred ms scene", scenes.Scene{Start: 100, End: 200}, []int64{125, 150, 175}},
		{"two ms scene", scenes.Scene{Start: 100, End: 101}, []int64{}},
		{"three ms scene", scenes.Scene{Start: 100, End: 102}, []int64{101}},
		{"zero length scene", scenes.Scene{Start: 7, End: 7}, []int64{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := OptimizedTimestamps([]scenes.Scene{tc.scene}, 3)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("OptimizedTimestamps(%v, 3) = %v, want %v", tc.scene, got, tc.want)
			}
		})
	}
}

func TestUniformTimestamps(t *testing.T) {
	tests := []struct {
		duration int64
		k        int
		want     []int64
	}{
		{3000, 1000, []int64{1, 1001, 2001}},
		{3001, 1000, []int64{1, 1001, 2001}},
		{3002, 1000, []int64{1, 1001, 2001, 3001}},
		{1, 1000, nil},
		{5000, 0, nil},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.duration, tc.k), func(t *testing.T) {
			got := UniformTimestamps(tc.duration, tc.k)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("UniformTimestamps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIndexOrderAndJSON(t *testing.T) {
	x := NewIndex()
	x.Add("dog", 10)
	x.Add("person", 10)
	x.Add("dog", 20)
	if want := []string{"dog", "person"}; !reflect.DeepEqual(x.Labels(), want) {
		t.Fatalf("Labels = %v, want %v", x.Labels(), want)
	}
	if got := x.Occurrences("dog"); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Fatalf("Occurrences(dog) = %v", got)
	}
	if x.Samples() != 3 {
		t.Fatalf("Samples = %d", x.Samples())
	}

	data, err := json.Marshal(x)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Index
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Entries(), x.Entries()) {
		t.Fatalf("round trip mismatch: %v vs %v", back.Entries(), x.Entries())
	}
}

type fakeFrames struct {
	fail map[int64]error
}

func (f fakeFrames) FrameAt(_ context.Context, ms int64) (Frame, error) {
	if err := f.fail[ms]; err != nil {
		return Frame{}, err
	}
	return Frame{Path: fmt.Sprintf("frame-%d.png", ms), Timestamp: ms}, nil
}

type fakeClassifier struct {
	labels map[int64][]string
	fail   map[int64]error
	calls  int
	cancel context.CancelFunc
	stopAt int
}

func (c *fakeClassifier) Labels(_ context.Context, frame Frame) ([]string, error) {
	c.calls++
	if c.cancel != nil && c.calls == c.stopAt {
		c.cancel()
	}
	if err := c.fail[frame.Timestamp]; err != nil {
		return nil, err
	}
	return c.labels[frame.Timestamp], nil
}

func TestSamplerBuildsIndexAndSkipsFailures(t *testing.T) {
	classifier := &fakeClassifier{
		labels: map[int64][]string{
			100: {"person"},
			200: {"person", "car"},
			400: {"car"},
		},
		fail: map[int64]error{300: errors.New("bad frame")},
	}
	sampler := &Sampler{
		Frames:     fakeFrames{fail: map[int64]error{200: services.Wrap(services.ErrTransient, "objects", "frame", "decode", nil)}},
		Classifier: classifier,
	}
	var progress []int
	index, err := sampler.Run(context.Background(), []int64{100, 200, 300, 400}, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := index.Occurrences("person"); !reflect.DeepEqual(got, []int64{100}) {
		t.Fatalf("person = %v", got)
	}
	if got := index.Occurrences("car"); !reflect.DeepEqual(got, []int64{400}) {
		t.Fatalf("car = %v", got)
	}
	if want := []int{25, 50, 75, 100}; !reflect.DeepEqual(progress, want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
}

func TestSamplerStopsOnDetectorUnavailable(t *testing.T) {
	sampler := &Sampler{
		Frames:     fakeFrames{fail: map[int64]error{1: services.Wrap(services.ErrDetectorUnavailable, "objects", "frame", "ffmpeg missing", nil)}},
		Classifier: &fakeClassifier{},
	}
	if _, err := sampler.Run(context.Background(), []int64{1, 2}, nil); !errors.Is(err, services.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}

func TestSamplerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	classifier := &fakeClassifier{cancel: cancel, stopAt: 2}
	sampler := &Sampler{Frames: fakeFrames{}, Classifier: classifier}
	_, err := sampler.Run(ctx, []int64{1, 2, 3, 4}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if classifier.calls != 2 {
		t.Fatalf("expected sampling to stop after 2 calls, got %d", classifier.calls)
	}
}

func TestSamplerEmptyPlan(t *testing.T) {
	var progress []int
	index, err := (&Sampler{Frames: fakeFrames{}, Classifier: &fakeClassifier{}}).Run(context.Background(), nil, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if index.Len() != 0 || !reflect.DeepEqual(progress, []int{100}) {
		t.Fatalf("unexpected result: %d labels, progress %v", index.Len(), progress)
	}
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testArtifacts(t *testing.T) Artifacts {
	t.Helper()
	dir := t.TempDir()
	a := Artifacts{
		Weights: filepath.Join(dir, "model.weights"),
		Config:  filepath.Join(dir, "model.cfg"),
		Names:   filepath.Join(dir, "coco.names"),
	}
	writeFile(t, a.Weights, "w", 0o644)
	writeFile(t, a.Config, "c", 0o644)
	writeFile(t, a.Names, "person\ncar\n\ndog\n", 0o644)
	return a
}

func TestArtifactsValidate(t *testing.T) {
	a := testArtifacts(t)
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	names, err := LoadNames(a.Names)
	if err != nil || !reflect.DeepEqual(names, []string{"person", "car", "dog"}) {
		t.Fatalf("LoadNames = %v, %v", names, err)
	}

	missing := a
	missing.Config = filepath.Join(t.TempDir(), "absent.cfg")
	if err := missing.Validate(); !errors.Is(err, services.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
	empty := a
	empty.Weights = filepath.Join(t.TempDir(), "empty.weights")
	writeFile(t, empty.Weights, "", 0o644)
	if err := empty.Validate(); !errors.Is(err, services.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable for empty weights, got %v", err)
	}
}

func TestCommandClassifierFiltersUnknownLabels(t *testing.T) {
	a := testArtifacts(t)
	script := filepath.Join(t.TempDir(), "detect.sh")
	writeFile(t, script, "#!/bin/sh\necho person\necho unicorn\necho person\necho dog\n", 0o755)

	c, err := NewCommandClassifier(script, nil, a)
	if err != nil {
		t.Fatalf("NewCommandClassifier returned error: %v", err)
	}
	labels, err := c.Labels(context.Background(), Frame{Path: "frame.png"})
	if err != nil {
		t.Fatalf("Labels returned error: %v", err)
	}
	if want := []string{"person", "dog"}; !reflect.DeepEqual(labels, want) {
		t.Fatalf("Labels = %v, want %v", labels, want)
	}
}

func TestCommandClassifierFailureIsTransient(t *testing.T) {
	a := testArtifacts(t)
	script := filepath.Join(t.TempDir(), "detect.sh")
	writeFile(t, script, "#!/bin/sh\necho broken >&2\nexit 3\n", 0o755)
	c, err := NewCommandClassifier(script, nil, a)
	if err != nil {
		t.Fatalf("NewCommandClassifier returned error: %v", err)
	}
	if _, err := c.Labels(context.Background(), Frame{Path: "frame.png"}); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestNewCommandClassifierMissingCommand(t *testing.T) {
	if _, err := NewCommandClassifier(filepath.Join(t.TempDir(), "nope"), nil, testArtifacts(t)); !errors.Is(err, services.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}
