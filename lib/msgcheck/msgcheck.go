// Package msgcheck defines types shared by all classification backends: labels, probability
// distribution, result and the error taxonomy.
package msgcheck

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Label is a binary classification label
type Label string

// enum of supported labels
const (
	LabelSpam Label = "SPAM"
	LabelHam  Label = "HAM"
)

// ProbTolerance is the allowed deviation of SPAM+HAM probabilities from 1.0
const ProbTolerance = 1e-6

// ParseLabel converts a string to Label, case-insensitive
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LabelSpam):
		return LabelSpam, nil
	case string(LabelHam):
		return LabelHam, nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Probabilities is a probability distribution over SPAM and HAM
type Probabilities struct {
	Spam float64 `json:"SPAM"`
	Ham  float64 `json:"HAM"`
}

// Validate checks both values are in [0,1] and sum to 1 within ProbTolerance
func (p Probabilities) Validate() error {
	if math.IsNaN(p.Spam) || math.IsNaN(p.Ham) {
		return errors.New("probability is NaN")
	}
	if p.Spam < 0 || p.Spam > 1 || p.Ham < 0 || p.Ham > 1 {
		return fmt.Errorf("probability out of range, spam=%v, ham=%v", p.Spam, p.Ham)
	}
	if math.Abs(p.Spam+p.Ham-1.0) >= ProbTolerance {
		return fmt.Errorf("probabilities don't sum to 1, spam=%v, ham=%v", p.Spam, p.Ham)
	}
	return nil
}

// Result is a classification result, the same shape for every backend.
// JSON representation matches the remote prediction contract.
type Result struct {
	Label         Label         `json:"prediction"`
	Probabilities Probabilities `json:"probabilities"`
}

// IsSpam returns true if the result is labeled SPAM
func (r Result) IsSpam() bool { return r.Label == LabelSpam }

// String returns result as "SPAM (spam: 97.12%, ham: 2.88%)"
func (r Result) String() string {
	return fmt.Sprintf("%s (spam: %.2f%%, ham: %.2f%%)", r.Label, r.Probabilities.Spam*100, r.Probabilities.Ham*100)
}

// NewResult makes a result from the spam probability, label is SPAM when spam wins strictly.
func NewResult(spamProb float64) Result {
	spamProb = math.Min(1, math.Max(0, spamProb))
	res := Result{Label: LabelHam, Probabilities: Probabilities{Spam: spamProb, Ham: 1 - spamProb}}
	if spamProb > res.Probabilities.Ham {
		res.Label = LabelSpam
	}
	return res
}
