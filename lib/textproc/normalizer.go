// Package textproc implements deterministic text cleaning applied to a message before feature extraction.
package textproc

import (
	"bufio"
	_ "embed" // embedded stop words list
	"fmt"
	"io"
	"strings"

	"github.com/forPelevin/gomoji"
)

//go:embed stopwords_en.txt
var englishStopWords string

// asciiPunct is the set of ASCII punctuation characters removed by Normalizer
const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalizer lowercases text, strips ASCII punctuation and drops stop words.
// It is immutable after creation and safe for concurrent use.
type Normalizer struct {
	stopWords  map[string]struct{}
	stripEmoji bool
}

// Option is a functional option for Normalizer
type Option func(n *Normalizer)

// WithStopWords replaces the default English stop words with the given list
func WithStopWords(words ...string) Option {
	return func(n *Normalizer) {
		n.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				n.stopWords[w] = struct{}{}
			}
		}
	}
}

// WithEmojiRemoval removes emojis from tokens
func WithEmojiRemoval() Option {
	return func(n *Normalizer) { n.stripEmoji = true }
}

// NewNormalizer makes a Normalizer with English stop words by default
func NewNormalizer(opts ...Option) *Normalizer {
	res := &Normalizer{}
	WithStopWords(EnglishStopWords()...)(res)
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Normalize returns cleaned text: lowercased, no ASCII punctuation, no stop words,
// tokens joined with a single space. Returns empty string if nothing left.
func (n *Normalizer) Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if IsPunct(r) {
			return -1
		}
		return r
	}, text)

	tokens := strings.Fields(text)
	res := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if n.stripEmoji {
			if token = strings.TrimSpace(gomoji.RemoveEmojis(token)); token == "" {
				continue
			}
		}
		if n.IsStopWord(token) {
			continue
		}
		res = append(res, token)
	}
	return strings.Join(res, " ")
}

// IsStopWord checks if a token is in the stop words set, case-insensitive
func (n *Normalizer) IsStopWord(token string) bool {
	_, ok := n.stopWords[strings.ToLower(token)]
	return ok
}

// StopWordsCount returns the number of loaded stop words
func (n *Normalizer) StopWordsCount() int {
	return len(n.stopWords)
}

// IsPunct reports whether r belongs to the ASCII punctuation set
func IsPunct(r rune) bool {
	return r < 0x80 && strings.ContainsRune(asciiPunct, r)
}

// EnglishStopWords returns the embedded English stop words list
func EnglishStopWords() []string {
	res, _ := ReadStopWords(strings.NewReader(englishStopWords))
	return res
}

// ReadStopWords reads stop words from readers, one word per line.
// Empty lines and lines started with # are ignored, words are lowercased.
func ReadStopWords(readers ...io.Reader) ([]string, error) {
	res := []string{}
	for _, r := range readers {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			res = append(res, strings.ToLower(line))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read stop words: %w", err)
		}
	}
	return res, nil
}
