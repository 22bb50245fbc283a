package subtitles

import (
	"context"
	"slices"
	"strings"
	"testing"

	"vidresume/internal/textutil"
)

const sampleSRT = "\xef\xbb\xbf1\r\n00:00:01,000 --> 00:00:02,500\r\n<i>Cats, cats</i>\r\nand cats.\r\n\r\n" +
	"2\n00:00:03,000 --> 00:00:04,000 X1:10 X2:20\nDogs dogs.\n\n" +
	"3\n00:00:05,000 --> 00:00:06,000\n{\\an8}<b></b>\n\n" +
	"4\nbroken timing\nignored\n\n" +
	"5\n00:00:07.000 --> 00:00:08,000\nno end\n"

func TestParseSRT(t *testing.T) {
	cues, err := ParseSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(cues) != 4 {
		t.Fatalf("expected 4 cues, got %d", len(cues))
	}
	if text(cues[0]) != "Cats, cats and cats." || *cues[0].Start != 1000 || *cues[0].End != 2500 {
		t.Fatalf("unexpected first cue: %q [%d, %d]", text(cues[0]), *cues[0].Start, *cues[0].End)
	}
	if *cues[1].End != 4000 {
		t.Fatalf("position hints not ignored: %d", *cues[1].End)
	}
	if cues[2].Text != nil {
		t.Fatalf("markup-only cue should have no text, got %q", text(cues[2]))
	}
	if *cues[3].Start != 7000 {
		t.Fatalf("period separator not accepted: %d", *cues[3].Start)
	}
	for _, c := range cues {
		if c.Score != nil {
			t.Fatal("parsed cues must not carry a score")
		}
	}
}

func TestSummarizerRun(t *testing.T) {
	cues, err := ParseSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	opts := Options{
		Scheme: textutil.Counters,
		Clean: CleanOptions{
			Lowercase:         true,
			RemovePunctuation: true,
			RemoveStopwords:   true,
			Stopwords:         []string{"and"},
			Punctuation:       ",.",
		},
	}
	var progress []int
	sentences, err := (&Summarizer{}).Run(context.Background(), cues, opts, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// The markup-only cue and "no end" form a tail without a terminal and are dropped.
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if text(sentences[0]) != "cats cats cats" || text(sentences[1]) != "dogs dogs" {
		t.Fatalf("unexpected cleaned text: %q, %q", text(sentences[0]), text(sentences[1]))
	}
	if sentences[0].Score == nil || *sentences[0].Score != 2 {
		t.Fatalf("expected first sentence scored 2, got %v", sentences[0].Score)
	}
	if sentences[1].Score == nil || *sentences[1].Score != 1 {
		t.Fatalf("expected second sentence scored 1, got %v", sentences[1].Score)
	}
	if progress[len(progress)-1] != 100 {
		t.Fatalf("final progress = %d", progress[len(progress)-1])
	}
}

func TestSummarizerRunIsDeterministic(t *testing.T) {
	const srt = "1\n00:00:01,000 --> 00:00:02,000\nThe ship left the harbour.\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nA storm hit the ship at night.\n\n" +
		"3\n00:00:05,000 --> 00:00:06,000\nThe harbour lights went dark.\n\n" +
		"4\n00:00:07,000 --> 00:00:08,000\nMorning found the crew safe.\n"
	opts := Options{
		Scheme: textutil.TFIDFSmoothL2,
		Clean:  CleanOptions{RemoveAll: true, Stopwords: []string{"the", "a", "at"}, Punctuation: ".,"},
	}
	scores := func() []int {
		cues, err := ParseSRT(strings.NewReader(srt))
		if err != nil {
			t.Fatalf("ParseSRT returned error: %v", err)
		}
		sentences, err := (&Summarizer{}).Run(context.Background(), cues, opts, nil)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		out := make([]int, len(sentences))
		for i, s := range sentences {
			if s.Score != nil {
				out[i] = *s.Score
			}
		}
		return out
	}
	first := scores()
	for i := 0; i < 5; i++ {
		if again := scores(); !slices.Equal(again, first) {
			t.Fatalf("run %d scored %v, first run scored %v", i, again, first)
		}
	}
}

func TestSummarizerEmptyCorpus(t *testing.T) {
	tests := []struct {
		name string
		cues []*Cue
	}{
		{"nil", nil},
		{"all nil", []*Cue{nil, nil}},
		{"only stopwords", []*Cue{{Text: Ptr("the a.")}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{
				Scheme: textutil.TFIDFSmoothL2,
				Clean:  CleanOptions{RemoveAll: true, Stopwords: []string{"the", "a"}, Punctuation: "."},
			}
			sentences, err := (&Summarizer{}).Run(context.Background(), tc.cues, opts, nil)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			for _, s := range sentences {
				if s.Score != nil {
					t.Fatalf("expected no scores, got %d", *s.Score)
				}
			}
		})
	}
}
