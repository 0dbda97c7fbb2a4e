package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	tokenizer "github.com/sandwich-go/gpt3-encoder"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// defaultPrompt asks a language model for a json verdict
const defaultPrompt = `I'll give you a text from a messaging application and you will return me a json with three fields: {"spam": true/false, "reason":"why this is spam or not", "confidence":1-100}. Confidence is how sure you are about the spam field. Return json only.`

// LLMConfig contains parameters shared by language model gateways
type LLMConfig struct {
	Model             string
	SystemPrompt      string
	MaxTokensResponse int // hard limit for the number of tokens in the response
	MaxTokensRequest  int // max request length in tokens
	MaxSymbolsRequest int // fallback max request length in symbols, if tokenizer failed
}

func (c LLMConfig) withDefaults(model string) LLMConfig {
	if c.Model == "" {
		c.Model = model
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultPrompt
	}
	if c.MaxTokensResponse <= 0 {
		c.MaxTokensResponse = 1024
	}
	if c.MaxTokensRequest <= 0 {
		c.MaxTokensRequest = 2048
	}
	if c.MaxSymbolsRequest <= 0 {
		c.MaxSymbolsRequest = 8192
	}
	return c
}

// llmAnswer is the verdict json returned by a language model
type llmAnswer struct {
	Spam       bool   `json:"spam"`
	Reason     string `json:"reason"`
	Confidence int    `json:"confidence"`
}

// result converts the verdict to probabilities, confidence is the probability of the returned verdict.
// The label always follows the verdict, confidence below 50 is raised to 50.
func (a llmAnswer) result() msgcheck.Result {
	conf := float64(min(max(a.Confidence, 50), 100)) / 100
	if a.Spam {
		return msgcheck.Result{Label: msgcheck.LabelSpam, Probabilities: msgcheck.Probabilities{Spam: conf, Ham: 1 - conf}}
	}
	return msgcheck.Result{Label: msgcheck.LabelHam, Probabilities: msgcheck.Probabilities{Spam: 1 - conf, Ham: conf}}
}

// parseAnswer decodes model output, tolerating markdown code fences around json
func parseAnswer(text string) (llmAnswer, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var res llmAnswer
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return llmAnswer{}, err
	}
	return res, nil
}

var gptEncoder = sync.OnceValues(tokenizer.NewEncoder)

// trimRequest cuts the text to maxTokens with the gpt3 tokenizer, or to maxSymbols runes if tokenizer fails
func trimRequest(text string, maxTokens, maxSymbols int) string {
	fallback := func() string {
		runes := []rune(text)
		if len(runes) <= maxSymbols {
			return text
		}
		return string(runes[:maxSymbols])
	}

	encoder, err := gptEncoder()
	if err != nil {
		log.Printf("[WARN] can't make tokenizer, fallback to symbols limit: %v", err)
		return fallback()
	}
	tokens, err := encoder.Encode(text)
	if err != nil {
		return fallback()
	}
	if len(tokens) <= maxTokens {
		return text
	}
	return encoder.Decode(tokens[:maxTokens])
}
