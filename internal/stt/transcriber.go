package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/config"
	"github.com/loqalabs/loqa-bisi/internal/httpclient"
)

// Audio is a recorded clip. The bytes are forwarded unmodified.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Transcriber abstracts STT backends. Implementations return the vendor
// response body verbatim so callers can relay it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (json.RawMessage, error)
}

// New builds the backend selected by cfg.Mode.
func New(cfg config.STTConfig) (Transcriber, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockTranscriber(), nil
	case "elevenlabs":
		opts := []ElevenLabsOption{
			WithElevenLabsModel(cfg.Model),
			WithElevenLabsClient(httpclient.New(time.Duration(cfg.TimeoutMS) * time.Millisecond)),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, WithElevenLabsBaseURL(cfg.Endpoint))
		}
		return NewElevenLabs(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported stt mode %q", cfg.Mode)
	}
}
