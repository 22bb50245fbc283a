package subtitles

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"vidresume/internal/textutil"
)

// Rank orders sentences by how well they represent the latent concepts of the
// corpus. The sentence-by-term matrix is factorized as U·Σ·Vᵀ; the columns of U
// (the concept-by-sentence rows of Uᵀ) are visited by descending singular
// value and each contributes the sentence with its largest weight, unless an
// earlier concept already chose it. onConcept is called after each concept.
func Rank(ctx context.Context, m *textutil.Matrix, onConcept func(done, total int)) ([]int, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return []int{}, nil
	}
	data := make([]float64, 0, rows*cols)
	for _, row := range m.Rows {
		data = append(data, row...)
	}
	a := mat.NewDense(rows, cols, data)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	_, concepts := u.Dims()

	selected := make([]int, 0, concepts)
	chosen := make(map[int]struct{}, concepts)
	column := make([]float64, rows)
	for c := 0; c < concepts; c++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mat.Col(column, c, &u)
		canonicalSign(column)
		best := argmax(column)
		if _, dup := chosen[best]; !dup {
			chosen[best] = struct{}{}
			selected = append(selected, best)
		}
		if onConcept != nil {
			onConcept(c+1, concepts)
		}
	}
	return selected, nil
}

// canonicalSign flips v so that its largest-magnitude component is positive.
// Singular vectors are only defined up to sign.
func canonicalSign(v []float64) {
	idx, peak := 0, -1.0
	for i, x := range v {
		if a := math.Abs(x); a > peak {
			idx, peak = i, a
		}
	}
	if v[idx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}

// argmax returns the index of the first maximum.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Score assigns len(selected)-position to each selected sentence, in order,
// and clears the score of every other sentence.
func Score(sentences []*Cue, selected []int) {
	for _, s := range sentences {
		if s != nil {
			s.Score = nil
		}
	}
	for pos, idx := range selected {
		if idx < 0 || idx >= len(sentences) || sentences[idx] == nil {
			continue
		}
		sentences[idx].Score = Ptr(len(selected) - pos)
	}
}
