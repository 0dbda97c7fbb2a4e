package spamclf

import (
	"fmt"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// TextNormalizer cleans text before feature extraction, satisfied by textproc.Normalizer
type TextNormalizer interface {
	Normalize(text string) string
}

// Pipeline runs normalizer, vectorizer and classifier in sequence. Safe for concurrent use.
type Pipeline struct {
	normalizer TextNormalizer
	model      *Model
}

// Trace keeps intermediate results of a pipeline run
type Trace struct {
	Cleaned string
	Vector  Vector
	Result  msgcheck.Result
}

// NewPipeline makes a pipeline for the given normalizer and loaded model
func NewPipeline(normalizer TextNormalizer, model *Model) *Pipeline {
	return &Pipeline{normalizer: normalizer, model: model}
}

// Predict classifies a message. It doesn't validate the input, empty text gets the prior distribution.
func (p *Pipeline) Predict(msg string) (msgcheck.Result, error) {
	tr, err := p.Trace(msg)
	if err != nil {
		return msgcheck.Result{}, err
	}
	return tr.Result, nil
}

// Trace classifies a message and returns all intermediate steps
func (p *Pipeline) Trace(msg string) (Trace, error) {
	if p == nil || p.model == nil || p.model.Vectorizer == nil || p.model.Classifier == nil {
		return Trace{}, msgcheck.ErrModelUnavailable
	}
	res := Trace{Cleaned: p.normalizer.Normalize(msg)}
	res.Vector = p.model.Vectorizer.Transform(res.Cleaned)
	result, err := p.model.Classifier.Classify(res.Vector)
	if err != nil {
		return Trace{}, fmt.Errorf("can't classify: %w", err)
	}
	res.Result = result
	return res, nil
}
