package spamclf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Norm is a normalization applied to a feature vector
type Norm string

// enum of supported norms
const (
	NormNone Norm = ""
	NormL1   Norm = "l1"
	NormL2   Norm = "l2"
)

// Vector is a sparse feature vector with fixed dimension.
// Indices are sorted in increasing order, Values are aligned with Indices.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// At returns value for the given index, zero if absent
func (v Vector) At(idx int) float64 {
	i := sort.SearchInts(v.Indices, idx)
	if i < len(v.Indices) && v.Indices[i] == idx {
		return v.Values[i]
	}
	return 0
}

// Dense returns a dense representation of the vector
func (v Vector) Dense() []float64 {
	res := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		res[idx] = v.Values[i]
	}
	return res
}

// NNZ returns number of non-zero elements
func (v Vector) NNZ() int { return len(v.Indices) }

// Vectorizer maps cleaned text to TF-IDF weighted vectors using a pre-fitted vocabulary.
// It is immutable after creation and safe for concurrent use.
type Vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	norm        Norm
	sublinearTF bool
}

// NewVectorizer makes a Vectorizer from a vocabulary (term -> index) and idf weights aligned by index
func NewVectorizer(vocabulary map[string]int, idf []float64, norm Norm, sublinearTF bool) (*Vectorizer, error) {
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	if len(idf) != len(vocabulary) {
		return nil, fmt.Errorf("idf size %d doesn't match vocabulary size %d", len(idf), len(vocabulary))
	}
	switch norm {
	case NormNone, NormL1, NormL2:
	default:
		return nil, fmt.Errorf("unsupported norm %q", norm)
	}

	seen := make([]bool, len(vocabulary))
	vocab := make(map[string]int, len(vocabulary))
	for term, idx := range vocabulary {
		if idx < 0 || idx >= len(vocabulary) {
			return nil, fmt.Errorf("index %d of term %q out of range", idx, term)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate index %d for term %q", idx, term)
		}
		seen[idx] = true
		vocab[term] = idx
	}

	weights := make([]float64, len(idf))
	copy(weights, idf)
	return &Vectorizer{vocabulary: vocab, idf: weights, norm: norm, sublinearTF: sublinearTF}, nil
}

// Dim returns the dimension of produced vectors, equal to vocabulary size
func (v *Vectorizer) Dim() int { return len(v.idf) }

// Index returns the vocabulary index of a term
func (v *Vectorizer) Index(term string) (int, bool) {
	idx, ok := v.vocabulary[term]
	return idx, ok
}

// Transform converts text into a feature vector. Terms absent from the vocabulary are ignored.
func (v *Vectorizer) Transform(text string) Vector {
	counts := map[int]float64{}
	for _, token := range Analyze(text) {
		if idx, ok := v.vocabulary[token]; ok {
			counts[idx]++
		}
	}

	res := Vector{Dim: v.Dim(), Indices: make([]int, 0, len(counts)), Values: make([]float64, 0, len(counts))}
	for idx := range counts {
		res.Indices = append(res.Indices, idx)
	}
	sort.Ints(res.Indices)

	var norm float64
	for _, idx := range res.Indices {
		tf := counts[idx]
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		val := tf * v.idf[idx]
		res.Values = append(res.Values, val)
		switch v.norm {
		case NormL1:
			norm += math.Abs(val)
		case NormL2:
			norm += val * val
		}
	}

	if v.norm == NormL2 {
		norm = math.Sqrt(norm)
	}
	if v.norm != NormNone && norm > 0 {
		for i := range res.Values {
			res.Values[i] /= norm
		}
	}
	return res
}

// Analyze splits text into lowercased word tokens of at least two runes.
// A word is a run of letters, numbers of any kind or underscores, combining marks break words.
func Analyze(text string) []string {
	isWordRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !isWordRune(r) })
	res := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		res = append(res, w)
	}
	return res
}
