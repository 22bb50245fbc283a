package textutil

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Scheme selects how sentences are turned into term vectors.
type Scheme string

const (
	Counters      Scheme = "counters"
	Binaries      Scheme = "binaries"
	NGram         Scheme = "ngram"
	TFL1          Scheme = "tf_l1"
	TFL2          Scheme = "tf_l2"
	TFIDF         Scheme = "tf_idf"
	TFIDFSmooth   Scheme = "tf_idf_smooth"
	TFIDFSmoothL1 Scheme = "tf_idf_smooth_l1"
	TFIDFSmoothL2 Scheme = "tf_idf_smooth_l2"
)

const maxNGramLength = 4

// Schemes lists every scheme in its legacy numeric order.
var Schemes = []Scheme{Counters, Binaries, NGram, TFL1, TFL2, TFIDF, TFIDFSmooth, TFIDFSmoothL1, TFIDFSmoothL2}

// ParseScheme accepts a scheme name or its legacy index ("0" to "8").
func ParseScheme(value string) (Scheme, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx, err := strconv.Atoi(value); err == nil {
		if idx >= 0 && idx < len(Schemes) {
			return Schemes[idx], nil
		}
		return "", fmt.Errorf("unknown vectoring scheme index %d", idx)
	}
	for _, s := range Schemes {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown vectoring scheme %q", value)
}

// Matrix is a dense sentence-by-term matrix.
type Matrix struct {
	Vocabulary []string
	Rows       [][]float64
}

// Dims returns the number of sentences and terms.
func (m *Matrix) Dims() (int, int) {
	if m == nil {
		return 0, 0
	}
	return len(m.Rows), len(m.Vocabulary)
}

// Vectorize builds the sentence-by-term matrix of docs. An empty corpus or a
// corpus without any token yields a matrix with no columns.
func Vectorize(scheme Scheme, docs []string) (*Matrix, error) {
	maxN := 1
	switch scheme {
	case Counters, Binaries, TFL1, TFL2, TFIDF, TFIDFSmooth, TFIDFSmoothL1, TFIDFSmoothL2:
	case NGram:
		maxN = maxNGramLength
	default:
		return nil, fmt.Errorf("unknown vectoring scheme %q", scheme)
	}

	terms := make([][]string, len(docs))
	vocabSet := make(map[string]struct{})
	for i, doc := range docs {
		terms[i] = ngrams(Tokenize(doc), maxN)
		for _, term := range terms[i] {
			vocabSet[term] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(vocabSet))
	for term := range vocabSet {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	column := make(map[string]int, len(vocab))
	for i, term := range vocab {
		column[term] = i
	}

	m := &Matrix{Vocabulary: vocab, Rows: make([][]float64, len(docs))}
	for i, doc := range terms {
		row := make([]float64, len(vocab))
		for _, term := range doc {
			row[column[term]]++
		}
		m.Rows[i] = row
	}
	if len(vocab) == 0 {
		return m, nil
	}

	switch scheme {
	case Binaries:
		for _, row := range m.Rows {
			for j, v := range row {
				if v > 0 {
					row[j] = 1
				}
			}
		}
	case TFL1:
		normalize(m.Rows, l1)
	case TFL2:
		normalize(m.Rows, l2)
	case TFIDF:
		applyIDF(m.Rows, false)
	case TFIDFSmooth:
		applyIDF(m.Rows, true)
	case TFIDFSmoothL1:
		applyIDF(m.Rows, true)
		normalize(m.Rows, l1)
	case TFIDFSmoothL2:
		applyIDF(m.Rows, true)
		normalize(m.Rows, l2)
	}
	return m, nil
}

func ngrams(tokens []string, maxN int) []string {
	if maxN <= 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*maxN)
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// applyIDF weights term counts by ln(n/df)+1, or ln((1+n)/(1+df))+1 when smoothed.
func applyIDF(rows [][]float64, smooth bool) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0])
	n := float64(len(rows))
	for j := 0; j < cols; j++ {
		var df float64
		for _, row := range rows {
			if row[j] > 0 {
				df++
			}
		}
		var idf float64
		if smooth {
			idf = math.Log((1+n)/(1+df)) + 1
		} else {
			idf = math.Log(n/df) + 1
		}
		for _, row := range rows {
			row[j] *= idf
		}
	}
}

func l1(row []float64) float64 {
	var sum float64
	for _, v := range row {
		sum += math.Abs(v)
	}
	return sum
}

func l2(row []float64) float64 {
	var sum float64
	for _, v := range row {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// normalize scales each row to unit norm. All-zero rows are left untouched.
func normalize(rows [][]float64, norm func([]float64) float64) {
	for _, row := range rows {
		n := norm(row)
		if n == 0 {
			continue
		}
		for j := range row {
			row[j] /= n
		}
	}
}
