package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/uap-cli/internal/domain"
)

// Default chat-completions endpoints for the OpenAI-compatible vendors.
var DefaultBaseURLs = map[domain.Backend]string{
	domain.BackendGroq:       "https://api.groq.com/openai/v1",
	domain.BackendOpenAI:     "https://api.openai.com/v1",
	domain.BackendTogether:   "https://api.together.xyz/v1",
	domain.BackendOpenRouter: "https://openrouter.ai/api/v1",
	domain.BackendAnthropic:  "https://api.anthropic.com",
	domain.BackendOllama:     "http://localhost:11434",
}

// OpenAICompatible speaks the /chat/completions API shared by groq, openai,
// together and openrouter.
type OpenAICompatible struct {
	baseURL string
	http    *http.Client
}

func NewOpenAICompatible(baseURL string, client *http.Client) *OpenAICompatible {
	return &OpenAICompatible{baseURL: strings.TrimRight(baseURL, "/"), http: httpClientOrDefault(client)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAICompatible) Complete(ctx context.Context, call Call) (string, error) {
	body := chatRequest{
		Model:       call.Model,
		Messages:    []chatMessage{{Role: "user", Content: call.Prompt}},
		Temperature: defaultTemp,
		MaxTokens:   defaultMaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + call.APIKey}

	var out chatResponse
	if err := postJSON(ctx, c.http, c.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
