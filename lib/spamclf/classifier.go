package spamclf

import (
	"fmt"
	"math"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// Classifier is a pre-trained multinomial naive Bayes model over two classes.
// It is immutable after creation and safe for concurrent use.
type Classifier struct {
	classes        [2]msgcheck.Label
	classLogPrior  [2]float64
	featureLogProb [2][]float64
}

// NewClassifier makes a Classifier. classes, classLogPrior and featureLogProb are aligned by class position,
// each featureLogProb row has one log probability per vocabulary index.
func NewClassifier(classes []msgcheck.Label, classLogPrior []float64, featureLogProb [][]float64) (*Classifier, error) {
	if len(classes) != 2 || len(classLogPrior) != 2 || len(featureLogProb) != 2 {
		return nil, fmt.Errorf("binary model expected, got %d classes, %d priors, %d feature rows",
			len(classes), len(classLogPrior), len(featureLogProb))
	}
	if classes[0] == classes[1] {
		return nil, fmt.Errorf("duplicate class %q", classes[0])
	}
	res := &Classifier{}
	for i := range 2 {
		if classes[i] != msgcheck.LabelSpam && classes[i] != msgcheck.LabelHam {
			return nil, fmt.Errorf("unknown class %q", classes[i])
		}
		if len(featureLogProb[i]) == 0 {
			return nil, fmt.Errorf("empty feature log probabilities for %s", classes[i])
		}
		if math.IsNaN(classLogPrior[i]) || math.IsInf(classLogPrior[i], 1) {
			return nil, fmt.Errorf("invalid log prior %v for %s", classLogPrior[i], classes[i])
		}
		res.classes[i] = classes[i]
		res.classLogPrior[i] = classLogPrior[i]
		res.featureLogProb[i] = make([]float64, len(featureLogProb[i]))
		copy(res.featureLogProb[i], featureLogProb[i])
	}
	if math.IsInf(res.classLogPrior[0], -1) && math.IsInf(res.classLogPrior[1], -1) {
		return nil, fmt.Errorf("both class priors are zero")
	}
	if len(res.featureLogProb[0]) != len(res.featureLogProb[1]) {
		return nil, fmt.Errorf("feature rows size mismatch, %d vs %d", len(res.featureLogProb[0]), len(res.featureLogProb[1]))
	}
	return res, nil
}

// Features returns the number of features the model expects
func (c *Classifier) Features() int { return len(c.featureLogProb[0]) }

// Classify returns label and probability distribution for a feature vector.
// The label is the class with the highest posterior, ties go to the first class.
func (c *Classifier) Classify(vec Vector) (msgcheck.Result, error) {
	if vec.Dim != c.Features() {
		return msgcheck.Result{}, fmt.Errorf("vector dimension %d doesn't match model features %d", vec.Dim, c.Features())
	}

	var jll [2]float64 // joint log likelihood per class
	for cls := range 2 {
		jll[cls] = c.classLogPrior[cls]
		for i, idx := range vec.Indices {
			if vec.Values[i] == 0 {
				continue
			}
			jll[cls] += vec.Values[i] * c.featureLogProb[cls][idx]
		}
	}

	probs := softmax(jll) // apply softmax to posterior log probabilities
	best := 0
	if probs[1] > probs[0] {
		best = 1
	}

	res := msgcheck.Result{Label: c.classes[best]}
	for cls := range 2 {
		switch c.classes[cls] {
		case msgcheck.LabelSpam:
			res.Probabilities.Spam = probs[cls]
		case msgcheck.LabelHam:
			res.Probabilities.Ham = probs[cls]
		}
	}
	return res, nil
}

// softmax converts log probabilities to normalized probabilities.
// the max log probability is subtracted first to avoid underflow on long messages.
func softmax(logProbs [2]float64) [2]float64 {
	maxLog := math.Max(logProbs[0], logProbs[1])
	var res [2]float64
	sum := 0.0
	for i, lp := range logProbs {
		res[i] = math.Exp(lp - maxLog)
		sum += res[i]
	}
	for i := range res {
		res[i] /= sum
	}
	return res
}
