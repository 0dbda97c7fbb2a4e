package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/umputun/spamdash/lib/gateway/mocks"
	"github.com/umputun/spamdash/lib/msgcheck"
)

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}}}
}

func geminiResponse(content string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: content}}}},
	}}
}

func TestLLMAnswer_Result(t *testing.T) {
	tests := []struct {
		name     string
		answer   llmAnswer
		label    msgcheck.Label
		spamProb float64
	}{
		{"confident spam", llmAnswer{Spam: true, Confidence: 90}, msgcheck.LabelSpam, 0.9},
		{"confident ham", llmAnswer{Spam: false, Confidence: 80}, msgcheck.LabelHam, 0.2},
		{"unsure spam", llmAnswer{Spam: true, Confidence: 50}, msgcheck.LabelSpam, 0.5},
		{"unsure ham", llmAnswer{Spam: false, Confidence: 50}, msgcheck.LabelHam, 0.5},
		{"low confidence spam keeps verdict", llmAnswer{Spam: true, Confidence: 30}, msgcheck.LabelSpam, 0.5},
		{"low confidence ham keeps verdict", llmAnswer{Spam: false, Confidence: 10}, msgcheck.LabelHam, 0.5},
		{"confidence above range", llmAnswer{Spam: true, Confidence: 150}, msgcheck.LabelSpam, 1.0},
		{"confidence below range", llmAnswer{Spam: true, Confidence: -5}, msgcheck.LabelSpam, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.answer.result()
			assert.Equal(t, tt.label, res.Label)
			assert.InDelta(t, tt.spamProb, res.Probabilities.Spam, 1e-9)
			assert.NoError(t, res.Probabilities.Validate())
		})
	}
}

func TestParseAnswer(t *testing.T) {
	ans, err := parseAnswer(`{"spam": true, "reason": "prize", "confidence": 95}`)
	require.NoError(t, err)
	assert.Equal(t, llmAnswer{Spam: true, Reason: "prize", Confidence: 95}, ans)

	ans, err = parseAnswer("```json\n{\"spam\": false, \"reason\": \"greeting\", \"confidence\": 70}\n```")
	require.NoError(t, err)
	assert.Equal(t, llmAnswer{Spam: false, Reason: "greeting", Confidence: 70}, ans)

	_, err = parseAnswer("I think this is spam")
	assert.Error(t, err)
}

func TestTrimRequest(t *testing.T) {
	assert.Equal(t, "short text", trimRequest("short text", 100, 1000))

	long := strings.Repeat("free prize money ", 200)
	trimmed := trimRequest(long, 10, 1000)
	assert.Less(t, len(trimmed), len(long))
	assert.True(t, strings.HasPrefix(long, trimmed), "trimmed text is a prefix")
}

func TestOpenAI_Infer(t *testing.T) {
	client := &mocks.OpenAIClientMock{CreateChatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return chatResponse(`{"spam": true, "reason": "prize scam", "confidence": 97}`), nil
	}}
	gw := NewOpenAI(client, LLMConfig{MaxTokensResponse: 300})
	assert.Equal(t, "openai", gw.Name())

	res, err := gw.Infer(context.Background(), "WIN A FREE PRIZE NOW!!!")
	require.NoError(t, err)
	assert.Equal(t, msgcheck.LabelSpam, res.Label)
	assert.InDelta(t, 0.97, res.Probabilities.Spam, 1e-9)

	require.Len(t, client.CreateChatCompletionCalls(), 1)
	req := client.CreateChatCompletionCalls()[0].Req
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 300, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, defaultPrompt, req.Messages[0].Content)
	assert.Equal(t, "WIN A FREE PRIZE NOW!!!", req.Messages[1].Content)
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name   string
		resp   openai.ChatCompletionResponse
		err    error
		kind   msgcheck.ErrKind
		status int
	}{
		{"api error", openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: 429, Message: "rate limit"},
			msgcheck.KindRemote, 429},
		{"request error", openai.ChatCompletionResponse{}, &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")},
			msgcheck.KindRemote, 502},
		{"transport error", openai.ChatCompletionResponse{}, errors.New("dial tcp: i/o timeout"), msgcheck.KindConnectivity, 0},
		{"no choices", openai.ChatCompletionResponse{}, nil, msgcheck.KindRemote, 200},
		{"not json", chatResponse("yes, spam"), nil, msgcheck.KindRemote, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.OpenAIClientMock{CreateChatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return tt.resp, tt.err
			}}
			_, err := NewOpenAI(client, LLMConfig{}).Infer(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tt.kind, msgcheck.Kind(err))
			var remoteErr *msgcheck.RemoteError
			if errors.As(err, &remoteErr) {
				assert.Equal(t, tt.status, remoteErr.Status)
			}
		})
	}

	t.Run("empty message", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{}
		_, err := NewOpenAI(client, LLMConfig{}).Infer(context.Background(), " ")
		assert.ErrorIs(t, err, msgcheck.ErrValidation)
		assert.Empty(t, client.CreateChatCompletionCalls())
	})

	t.Run("no client", func(t *testing.T) {
		_, err := NewOpenAI(nil, LLMConfig{}).Infer(context.Background(), "hello")
		assert.ErrorIs(t, err, msgcheck.ErrModelUnavailable)
	})
}

func TestGemini_Infer(t *testing.T) {
	client := &mocks.GeminiClientMock{GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return geminiResponse(`{"spam": false, "reason": "regular chat", "confidence": 88}`), nil
	}}
	gw := NewGemini(client, LLMConfig{Model: "gemini-test", SystemPrompt: "check it"})
	assert.Equal(t, "gemini", gw.Name())

	res, err := gw.Infer(context.Background(), "lunch tomorrow?")
	require.NoError(t, err)
	assert.Equal(t, msgcheck.LabelHam, res.Label)
	assert.InDelta(t, 0.12, res.Probabilities.Spam, 1e-9)

	require.Len(t, client.GenerateContentCalls(), 1)
	call := client.GenerateContentCalls()[0]
	assert.Equal(t, "gemini-test", call.Model)
	assert.Equal(t, "application/json", call.Config.ResponseMIMEType)
	assert.Equal(t, int32(1024), call.Config.MaxOutputTokens)
	require.NotNil(t, call.Config.SystemInstruction)
	assert.Equal(t, "check it", call.Config.SystemInstruction.Parts[0].Text)
	require.Len(t, call.Contents, 1)
	assert.Equal(t, "lunch tomorrow?", call.Contents[0].Parts[0].Text)
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
		kind msgcheck.ErrKind
	}{
		{"api error", nil, genai.APIError{Code: 429, Message: "quota exceeded"}, msgcheck.KindRemote},
		{"transport error", nil, errors.New("connection reset"), msgcheck.KindConnectivity},
		{"no candidates", &genai.GenerateContentResponse{}, nil, msgcheck.KindRemote},
		{"not json", geminiResponse("definitely spam"), nil, msgcheck.KindRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.GeminiClientMock{GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content,
				config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}}
			_, err := NewGemini(client, LLMConfig{}).Infer(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tt.kind, msgcheck.Kind(err))
		})
	}

	t.Run("api error status", func(t *testing.T) {
		client := &mocks.GeminiClientMock{GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content,
			config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 403, Message: "forbidden"}
		}}
		_, err := NewGemini(client, LLMConfig{}).Infer(context.Background(), "hello")
		var remoteErr *msgcheck.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, 403, remoteErr.Status)
		assert.Equal(t, "forbidden", remoteErr.Body)
	})
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
		{Text: "thinking...", Thought: true},
		{Text: `{"spam": `},
		{Text: `true}`},
	}}}}}
	assert.Equal(t, `{"spam": true}`, responseText(resp))
}
