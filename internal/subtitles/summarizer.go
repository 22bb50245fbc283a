package subtitles

import (
	"context"
	"fmt"
	"log/slog"

	"vidresume/internal/logging"
	"vidresume/internal/textutil"
)

// Options configure one summarization pass.
type Options struct {
	Clean  CleanOptions
	Scheme textutil.Scheme
}

// Summarizer joins, cleans, vectorizes and ranks subtitle sentences.
type Summarizer struct {
	Logger *slog.Logger
}

// Run returns every joined sentence with the selected ones scored. Empty or
// text-less corpora produce sentences without scores and no error.
func (s *Summarizer) Run(ctx context.Context, cues []*Cue, opts Options, progress func(int)) ([]*Cue, error) {
	logger := logging.WithContext(ctx, s.Logger)
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	sentences := Clean(JoinSentences(cues), opts.Clean)
	if sentences == nil {
		sentences = []*Cue{}
	}
	report(10)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rank only sentences that carry text and map the winners back.
	corpus := make([]int, 0, len(sentences))
	docs := make([]string, 0, len(sentences))
	for i, sentence := range sentences {
		if sentence.Text == nil {
			continue
		}
		corpus = append(corpus, i)
		docs = append(docs, *sentence.Text)
	}

	matrix, err := textutil.Vectorize(opts.Scheme, docs)
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	rows, cols := matrix.Dims()
	logger.Debug("subtitles vectorized",
		logging.Int("sentence_count", rows),
		logging.Int("term_count", cols),
		logging.String("scheme", string(opts.Scheme)),
	)
	report(30)

	ranked, err := Rank(ctx, matrix, func(done, total int) {
		report(30 + int(float64(done)/float64(total)*69))
	})
	if err != nil {
		return nil, err
	}
	selected := make([]int, len(ranked))
	for i, idx := range ranked {
		selected[i] = corpus[idx]
	}
	Score(sentences, selected)
	report(100)

	logger.Info("subtitle summary complete",
		logging.Int("sentence_count", len(sentences)),
		logging.Int("selected_count", len(selected)),
	)
	return sentences, nil
}
