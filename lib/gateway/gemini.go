package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/umputun/spamdash/lib/msgcheck"
)

//go:generate moq --out mocks/gemini_client.go --pkg mocks --skip-ensure --with-resets . GeminiClient

// GeminiClient is a subset of genai.Models used by the gateway
type GeminiClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is a gateway asking Google Gemini for a verdict
type Gemini struct {
	client GeminiClient
	params LLMConfig
}

// NewGemini makes Gemini gateway
func NewGemini(client GeminiClient, params LLMConfig) *Gemini {
	return &Gemini{client: client, params: params.withDefaults("gemini-2.0-flash")}
}

// Name returns backend name
func (g *Gemini) Name() string { return "gemini" }

// Infer asks the model about the message
func (g *Gemini) Infer(ctx context.Context, msg string) (msgcheck.Result, error) {
	if err := validate(msg); err != nil {
		return msgcheck.Result{}, err
	}
	if g.client == nil {
		return msgcheck.Result{}, msgcheck.ErrModelUnavailable
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.params.SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(min(g.params.MaxTokensResponse, 1<<20)), //nolint:gosec // bounded above
	}
	text := trimRequest(msg, g.params.MaxTokensRequest, g.params.MaxSymbolsRequest)
	resp, err := g.client.GenerateContent(ctx, g.params.Model, genai.Text(text), cfg)
	if err != nil {
		return msgcheck.Result{}, geminiError(ctx, err)
	}

	content := responseText(resp)
	if content == "" {
		return msgcheck.Result{}, &msgcheck.RemoteError{Status: 200, Body: "empty response"}
	}
	answer, err := parseAnswer(content)
	if err != nil {
		return msgcheck.Result{}, &msgcheck.RemoteError{Status: 200, Body: content}
	}
	return answer.result(), nil
}

// responseText joins text parts of the first candidate, skipping thoughts
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// geminiError maps client errors to the error taxonomy
func geminiError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &msgcheck.RemoteError{Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &msgcheck.RemoteError{Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return &msgcheck.ConnectivityError{Err: fmt.Errorf("gemini request failed: %w", err)}
}
