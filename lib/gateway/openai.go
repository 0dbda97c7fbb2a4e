package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/spamdash/lib/msgcheck"
)

//go:generate moq --out mocks/openai_client.go --pkg mocks --skip-ensure --with-resets . OpenAIClient

// OpenAIClient is a subset of openai.Client used by the gateway
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI is a gateway asking OpenAI chat completion api for a verdict
type OpenAI struct {
	client OpenAIClient
	params LLMConfig
}

// NewOpenAI makes OpenAI gateway
func NewOpenAI(client OpenAIClient, params LLMConfig) *OpenAI {
	return &OpenAI{client: client, params: params.withDefaults("gpt-4o-mini")}
}

// Name returns backend name
func (o *OpenAI) Name() string { return "openai" }

// Infer asks the model about the message
func (o *OpenAI) Infer(ctx context.Context, msg string) (msgcheck.Result, error) {
	if err := validate(msg); err != nil {
		return msgcheck.Result{}, err
	}
	if o.client == nil {
		return msgcheck.Result{}, msgcheck.ErrModelUnavailable
	}

	req := openai.ChatCompletionRequest{
		Model:     o.params.Model,
		MaxTokens: o.params.MaxTokensResponse,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.params.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: trimRequest(msg, o.params.MaxTokensRequest, o.params.MaxSymbolsRequest)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return msgcheck.Result{}, openAIError(ctx, err)
	}

	// only the first choice is used
	if len(resp.Choices) == 0 {
		return msgcheck.Result{}, &msgcheck.RemoteError{Status: 200, Body: "no choices in response"}
	}
	content := resp.Choices[0].Message.Content
	answer, err := parseAnswer(content)
	if err != nil {
		return msgcheck.Result{}, &msgcheck.RemoteError{Status: 200, Body: content}
	}
	return answer.result(), nil
}

// openAIError maps client errors to the error taxonomy
func openAIError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &msgcheck.RemoteError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &msgcheck.RemoteError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return &msgcheck.ConnectivityError{Err: fmt.Errorf("openai request failed: %w", err)}
}
