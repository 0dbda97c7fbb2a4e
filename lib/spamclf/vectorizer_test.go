package spamclf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"win free prize", []string{"win", "free", "prize"}},
		{"A b cd, e-fg", []string{"cd", "fg"}},
		{"Привет мир 42", []string{"привет", "мир", "42"}},
		{"snake_case word", []string{"snake_case", "word"}},
		{"money💰money", []string{"money", "money"}},
		{"café x² Ⅻ don't", []string{"café", "x²", "don"}},
		{"XII Ⅻ ⅫⅫ ½½", []string{"xii", "ⅻⅻ", "½½"}},
		{"cafe\u0301s nai\u0308ve", []string{"cafe", "nai", "ve"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.in))
		})
	}
}

func TestNewVectorizer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		vocab map[string]int
		idf   []float64
		norm  Norm
	}{
		{"empty", map[string]int{}, nil, NormL2},
		{"idf size", map[string]int{"a": 0, "b": 1}, []float64{1}, NormL2},
		{"out of range", map[string]int{"a": 0, "b": 2}, []float64{1, 1}, NormL2},
		{"duplicate index", map[string]int{"a": 1, "b": 1}, []float64{1, 1}, NormL2},
		{"bad norm", map[string]int{"a": 0}, []float64{1}, Norm("max")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVectorizer(tt.vocab, tt.idf, tt.norm, false)
			assert.Error(t, err)
		})
	}
}

func TestVectorizer_Transform(t *testing.T) {
	vocab := map[string]int{"win": 0, "free": 1, "prize": 2, "lunch": 3}
	idf := []float64{1.5, 1.5, 2.0, 1.0}

	t.Run("l2", func(t *testing.T) {
		v, err := NewVectorizer(vocab, idf, NormL2, false)
		require.NoError(t, err)
		assert.Equal(t, 4, v.Dim())

		vec := v.Transform("free win win unknown")
		assert.Equal(t, 4, vec.Dim)
		assert.Equal(t, []int{0, 1}, vec.Indices)
		// raw weights: win 2*1.5=3, free 1*1.5=1.5
		n := math.Sqrt(3*3 + 1.5*1.5)
		assert.InDelta(t, 3/n, vec.At(0), 1e-9)
		assert.InDelta(t, 1.5/n, vec.At(1), 1e-9)
		assert.Equal(t, 0.0, vec.At(3))
		assert.Equal(t, 2, vec.NNZ())

		dense := vec.Dense()
		assert.Len(t, dense, 4)
		assert.InDelta(t, 1.0, dense[0]*dense[0]+dense[1]*dense[1], 1e-9)
	})

	t.Run("l1 sublinear", func(t *testing.T) {
		v, err := NewVectorizer(vocab, idf, NormL1, true)
		require.NoError(t, err)
		vec := v.Transform("win win prize")
		// win (1+ln2)*1.5, prize 1*2.0
		w, p := (1+math.Log(2))*1.5, 2.0
		assert.InDelta(t, w/(w+p), vec.At(0), 1e-9)
		assert.InDelta(t, p/(w+p), vec.At(2), 1e-9)
	})

	t.Run("no norm", func(t *testing.T) {
		v, err := NewVectorizer(vocab, idf, NormNone, false)
		require.NoError(t, err)
		vec := v.Transform("prize prize")
		assert.InDelta(t, 4.0, vec.At(2), 1e-9)
	})

	t.Run("unknown tokens only", func(t *testing.T) {
		v, err := NewVectorizer(vocab, idf, NormL2, false)
		require.NoError(t, err)
		vec := v.Transform("nothing known here")
		assert.Equal(t, 4, vec.Dim, "dimension is fixed")
		assert.Equal(t, 0, vec.NNZ())
	})

	t.Run("vocabulary is copied", func(t *testing.T) {
		src := map[string]int{"win": 0}
		v, err := NewVectorizer(src, []float64{1}, NormL2, false)
		require.NoError(t, err)
		src["lunch"] = 1
		_, ok := v.Index("lunch")
		assert.False(t, ok)
		idx, ok := v.Index("win")
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})
}
