package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Google Gen AI API. A client is built per call because the
// key is resolved per call.
type Gemini struct {
	baseURL string
	http    *http.Client
}

func NewGemini(baseURL string, client *http.Client) *Gemini {
	return &Gemini{baseURL: baseURL, http: client}
}

func (c *Gemini) Complete(ctx context.Context, call Call) (string, error) {
	cfg := &genai.ClientConfig{
		APIKey:     call.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	model := call.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(call.Prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](defaultTemp),
		MaxOutputTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("response has no text")
	}
	return text, nil
}
