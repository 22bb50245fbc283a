package subtitles

// Cue is one subtitle entry or joined sentence. A nil field is unknown; a nil
// Score means the sentence was not selected.
type Cue struct {
	Text  *string `json:"text" yaml:"text"`
	Start *int64  `json:"start" yaml:"start"`
	End   *int64  `json:"end" yaml:"end"`
	Score *int    `json:"score" yaml:"score"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Clone returns a deep copy of c.
func (c *Cue) Clone() *Cue {
	if c == nil {
		return nil
	}
	return &Cue{
		Text:  clonePtr(c.Text),
		Start: clonePtr(c.Start),
		End:   clonePtr(c.End),
		Score: clonePtr(c.Score),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return Ptr(*p)
}

// Times returns the cue bounds and whether both are known.
func (c *Cue) Times() (int64, int64, bool) {
	if c == nil || c.Start == nil || c.End == nil {
		return 0, 0, false
	}
	return *c.Start, *c.End, true
}

// Fuse combines two cues: texts joined with one space, earliest start, latest
// end and summed score. A nil field on either side leaves the other side's
// value unchanged; a nil cue returns the other cue.
func Fuse(a, b *Cue) *Cue {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := a.Clone()
	switch {
	case out.Text == nil:
		out.Text = clonePtr(b.Text)
	case b.Text != nil:
		out.Text = Ptr(*out.Text + " " + *b.Text)
	}
	switch {
	case out.Start == nil:
		out.Start = clonePtr(b.Start)
	case b.Start != nil:
		out.Start = Ptr(min(*out.Start, *b.Start))
	}
	switch {
	case out.End == nil:
		out.End = clonePtr(b.End)
	case b.End != nil:
		out.End = Ptr(max(*out.End, *b.End))
	}
	switch {
	case out.Score == nil:
		out.Score = clonePtr(b.Score)
	case b.Score != nil:
		out.Score = Ptr(*out.Score + *b.Score)
	}
	return out
}

// sentenceTerminals end a sentence when they are the last character of the
// accumulated text.
const sentenceTerminals = "¡!.¿?"

// JoinSentences fuses consecutive cues into sentences. A sentence is flushed
// when its text ends with a terminal character. Nil cues are skipped; a cue
// without text still widens the running sentence's bounds. Text left over
// after the last terminal is dropped. A nil input returns nil.
func JoinSentences(cues []*Cue) []*Cue {
	if cues == nil {
		return nil
	}
	out := []*Cue{}
	var acc *Cue
	for _, cue := range cues {
		if cue == nil {
			continue
		}
		if acc == nil {
			acc = cue.Clone()
		} else {
			acc = Fuse(acc, cue)
		}
		if acc.Text != nil && endsSentence(*acc.Text) {
			out = append(out, acc)
			acc = nil
		}
	}
	return out
}

func endsSentence(text string) bool {
	if text == "" {
		return false
	}
	runes := []rune(text)
	last := runes[len(runes)-1]
	for _, r := range sentenceTerminals {
		if r == last {
			return true
		}
	}
	return false
}
