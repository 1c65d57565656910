package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

type Anthropic struct {
	baseURL string
	http    *http.Client
}

func NewAnthropic(baseURL string, client *http.Client) *Anthropic {
	return &Anthropic{baseURL: strings.TrimRight(baseURL, "/"), http: httpClientOrDefault(client)}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Anthropic) Complete(ctx context.Context, call Call) (string, error) {
	body := messagesRequest{
		Model:       call.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemp,
		Messages:    []chatMessage{{Role: "user", Content: call.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         call.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var out messagesResponse
	if err := postJSON(ctx, c.http, c.baseURL+"/v1/messages", headers, body, &out); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("response has no text content")
	}
	return text.String(), nil
}
