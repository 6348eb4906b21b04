package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/config"
	"github.com/loqalabs/loqa-bisi/internal/httpclient"
)

// Request describes a completion prompt. Model and temperature are not part
// of it: they come from server configuration only.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Generator defines a pluggable completion backend. The result is a JSON
// document of the form {"generations":[{"text":...}]}.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// ErrEmptyPrompt is returned for blank prompts.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// CompletionError describes a failed vendor call.
type CompletionError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s completion error [%d]: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s completion error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s completion error: %s", e.Provider, e.Message)
}

func (e *CompletionError) Unwrap() error { return e.Cause }

// New builds the backend selected by cfg.Mode.
func New(cfg config.LLMConfig) (Generator, error) {
	client := httpclient.New(time.Duration(cfg.TimeoutMS) * time.Millisecond)
	switch cfg.Mode {
	case "mock":
		return NewMockGenerator(), nil
	case "cohere":
		return NewCohereGenerator(cfg.APIKey, cfg.Endpoint, cfg.Model, cfg.Temperature, client), nil
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model, cfg.Temperature, client), nil
	default:
		return nil, fmt.Errorf("unsupported llm mode %q", cfg.Mode)
	}
}
