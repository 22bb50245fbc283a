package objects

import "encoding/json"

// Index maps each detected label to the timestamps it was seen at, in
// sampling order. Labels are kept in first-seen order.
type Index struct {
	order       []string
	occurrences map[string][]int64
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{occurrences: make(map[string][]int64)}
}

// Add records that label was seen at ms.
func (x *Index) Add(label string, ms int64) {
	if _, ok := x.occurrences[label]; !ok {
		x.order = append(x.order, label)
	}
	x.occurrences[label] = append(x.occurrences[label], ms)
}

// Labels returns the labels in first-seen order.
func (x *Index) Labels() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.order...)
}

// Occurrences returns the timestamps recorded for label.
func (x *Index) Occurrences(label string) []int64 {
	if x == nil {
		return nil
	}
	return x.occurrences[label]
}

// Len returns the number of distinct labels.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// Samples returns the total number of recorded occurrences.
func (x *Index) Samples() int {
	if x == nil {
		return 0
	}
	total := 0
	for _, ts := range x.occurrences {
		total += len(ts)
	}
	return total
}

// Entry is one label with its occurrences.
type Entry struct {
	Label       string  `json:"label" yaml:"label"`
	Occurrences []int64 `json:"occurrences" yaml:"occurrences"`
}

// Entries returns the index as a list in label order.
func (x *Index) Entries() []Entry {
	if x == nil {
		return nil
	}
	out := make([]Entry, 0, len(x.order))
	for _, label := range x.order {
		out = append(out, Entry{Label: label, Occurrences: x.occurrences[label]})
	}
	return out
}

// FromEntries rebuilds an index from its entries.
func FromEntries(entries []Entry) *Index {
	x := NewIndex()
	for _, e := range entries {
		for _, ms := range e.Occurrences {
			x.Add(e.Label, ms)
		}
		if len(e.Occurrences) == 0 {
			if _, ok := x.occurrences[e.Label]; !ok {
				x.order = append(x.order, e.Label)
				x.occurrences[e.Label] = nil
			}
		}
	}
	return x
}

// MarshalJSON encodes the index as its ordered entry list.
func (x *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.Entries())
}

// UnmarshalJSON decodes an ordered entry list.
func (x *Index) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*x = *FromEntries(entries)
	return nil
}
