package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	cohereBaseURL  = "https://api.cohere.ai"
	cohereGenerate = "/v1/generate"
)

type cohereGenerator struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

func NewCohereGenerator(apiKey, endpoint, model string, temperature float64, client *http.Client) Generator {
	if endpoint == "" {
		endpoint = cohereBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &cohereGenerator{
		apiKey:      apiKey,
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		temperature: temperature,
		client:      client,
	}
}

func (g *cohereGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	body, err := json.Marshal(cohereRequest{
		Model:       g.model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+cohereGenerate, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &CompletionError{Provider: "cohere", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CompletionError{Provider: "cohere", Message: "read response", Cause: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &CompletionError{Provider: "cohere", StatusCode: resp.StatusCode, Message: snippet(data)}
	}
	if !json.Valid(data) {
		return nil, &CompletionError{Provider: "cohere", Message: fmt.Sprintf("response is not JSON: %s", snippet(data))}
	}
	return json.RawMessage(data), nil
}

func snippet(data []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
