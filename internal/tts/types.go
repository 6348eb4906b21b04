package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/config"
	"github.com/loqalabs/loqa-bisi/internal/httpclient"
)

// SynthRequest contains the text to speak. Voice and model parameters are
// fixed by server configuration.
type SynthRequest struct {
	Text string
}

// SynthResult is the encoded audio returned by a backend.
type SynthResult struct {
	Audio       []byte
	ContentType string
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (SynthResult, error)
}

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("text cannot be empty")

// SynthesisError describes a failed vendor call.
type SynthesisError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *SynthesisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s synthesis error [%d]: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// New builds the backend selected by cfg.Mode.
func New(cfg config.TTSConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(), nil
	case "elevenlabs":
		opts := []ElevenLabsOption{
			WithElevenLabsModel(cfg.Model),
			WithElevenLabsVoiceSettings(cfg.Stability, cfg.SimilarityBoost),
			WithElevenLabsClient(httpclient.New(time.Duration(cfg.TimeoutMS) * time.Millisecond)),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, WithElevenLabsBaseURL(cfg.Endpoint))
		}
		return NewElevenLabs(cfg.APIKey, cfg.VoiceID, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported tts mode %q", cfg.Mode)
	}
}
