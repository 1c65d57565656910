package llm

import (
	"context"
	"net/http"
	"strings"
)

type Ollama struct {
	baseURL string
	http    *http.Client
}

func NewOllama(baseURL string, client *http.Client) *Ollama {
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), http: httpClientOrDefault(client)}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Ollama) Complete(ctx context.Context, call Call) (string, error) {
	var out generateResponse
	body := generateRequest{Model: call.Model, Prompt: call.Prompt}
	if err := postJSON(ctx, c.http, c.baseURL+"/api/generate", nil, body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}
