package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const ollamaBaseURL = "http://localhost:11434"

// ollamaGenerator talks to a local Ollama server and re-wraps its streamed
// output in the generations envelope the proxy relays.
type ollamaGenerator struct {
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
}

func NewOllamaGenerator(endpoint, model string, temperature float64, client *http.Client) Generator {
	if endpoint == "" {
		endpoint = ollamaBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ollamaGenerator{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		temperature: temperature,
		client:      client,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaStreamResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type envelope struct {
	Generations []generation `json:"generations"`
}

type generation struct {
	Text string `json:"text"`
}

func (g *ollamaGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	payload := ollamaRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		Stream: true,
		Options: ollamaOptions{
			Temperature: g.temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &CompletionError{Provider: "ollama", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &CompletionError{Provider: "ollama", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	scanner := bufio.NewScanner(resp.Body)
	var accumulated strings.Builder
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk ollamaStreamResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, &CompletionError{Provider: "ollama", Message: "decode stream chunk", Cause: err}
		}
		if chunk.Error != "" {
			return nil, &CompletionError{Provider: "ollama", Message: chunk.Error}
		}
		accumulated.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ollama stream: %w", err)
	}
	return json.Marshal(envelope{Generations: []generation{{Text: accumulated.String()}}})
}
