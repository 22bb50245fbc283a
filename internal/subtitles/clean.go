package subtitles

import (
	"strings"

	"vidresume/internal/textutil"
)

// CleanOptions selects the text normalization steps applied before ranking.
type CleanOptions struct {
	Lowercase         bool
	RemoveStopwords   bool
	RemovePunctuation bool
	RemoveAccents     bool
	// RemoveAll forces every step on.
	RemoveAll   bool
	Stopwords   []string
	Punctuation string
}

// Clean rewrites the text of every sentence in place, in this order:
// lowercase, stopword removal, punctuation removal, accent folding. Nil
// entries are dropped; sentences with nil text are kept untouched.
func Clean(sentences []*Cue, opts CleanOptions) []*Cue {
	if sentences == nil {
		return nil
	}
	all := opts.RemoveAll
	var stop map[string]struct{}
	if opts.RemoveStopwords || all {
		stop = make(map[string]struct{}, len(opts.Stopwords))
		for _, w := range opts.Stopwords {
			stop[textutil.Lower(w)] = struct{}{}
		}
	}

	out := make([]*Cue, 0, len(sentences))
	for _, s := range sentences {
		if s == nil {
			continue
		}
		if s.Text != nil {
			text := *s.Text
			if opts.Lowercase || all {
				text = textutil.Lower(text)
			}
			if stop != nil {
				text = removeStopwords(text, stop)
			}
			if opts.RemovePunctuation || all {
				text = textutil.RemoveChars(text, opts.Punctuation)
			}
			if opts.RemoveAccents || all {
				text = textutil.FoldAccents(text)
			}
			s.Text = &text
		}
		out = append(out, s)
	}
	return out
}

func removeStopwords(text string, stop map[string]struct{}) string {
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stop[textutil.Lower(w)]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
