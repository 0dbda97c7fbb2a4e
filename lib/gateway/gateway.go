// Package gateway provides inference backends behind a single Gateway interface.
// Local runs the in-process pipeline, Remote calls a prediction service over HTTP,
// OpenAI and Gemini ask a language model. All of them return the same msgcheck.Result
// and report failures with the error taxonomy of msgcheck.
package gateway

import (
	"context"
	"strings"

	"github.com/umputun/spamdash/lib/msgcheck"
)

//go:generate moq --out mocks/gateway.go --pkg mocks --skip-ensure --with-resets . Gateway
//go:generate moq --out mocks/predictor.go --pkg mocks --skip-ensure --with-resets . Predictor

// Gateway classifies a single message with some backend
type Gateway interface {
	Infer(ctx context.Context, msg string) (msgcheck.Result, error)
	Name() string
}

// Predictor runs local classification, satisfied by spamclf.Pipeline
type Predictor interface {
	Predict(msg string) (msgcheck.Result, error)
}

// Local is a gateway running the in-process pipeline
type Local struct {
	predictor Predictor
}

// NewLocal makes a local gateway. A nil predictor makes every call fail with msgcheck.ErrModelUnavailable.
func NewLocal(p Predictor) *Local {
	return &Local{predictor: p}
}

// Name returns backend name
func (l *Local) Name() string { return "local" }

// Infer validates the message and classifies it locally
func (l *Local) Infer(ctx context.Context, msg string) (msgcheck.Result, error) {
	if err := validate(msg); err != nil {
		return msgcheck.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return msgcheck.Result{}, err
	}
	if l.predictor == nil {
		return msgcheck.Result{}, msgcheck.ErrModelUnavailable
	}
	return l.predictor.Predict(msg)
}

// validate rejects empty and whitespace-only messages
func validate(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return msgcheck.ErrValidation
	}
	return nil
}
