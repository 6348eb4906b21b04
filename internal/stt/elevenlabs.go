package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/httpclient"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io"
	elevenLabsSTTPath  = "/v1/speech-to-text"
	elevenLabsProvider = "elevenlabs"

	// ModelScribeV1 is the ElevenLabs speech-to-text model.
	ModelScribeV1 = "scribe_v1"

	defaultElevenLabsTimeout = 30 * time.Second
	defaultFilename          = "recording.wav"
)

// ElevenLabsTranscriber calls the ElevenLabs speech-to-text API.
type ElevenLabsTranscriber struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// ElevenLabsOption configures the transcriber.
type ElevenLabsOption func(*ElevenLabsTranscriber)

func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(t *ElevenLabsTranscriber) { t.baseURL = url }
}

func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(t *ElevenLabsTranscriber) { t.client = client }
}

func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(t *ElevenLabsTranscriber) {
		if model != "" {
			t.model = model
		}
	}
}

func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) *ElevenLabsTranscriber {
	t := &ElevenLabsTranscriber{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		model:   ModelScribeV1,
		client:  httpclient.New(defaultElevenLabsTimeout),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ElevenLabsTranscriber) Transcribe(ctx context.Context, audio Audio) (json.RawMessage, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	filename := audio.Filename
	if filename == "" {
		filename = defaultFilename
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	if err := writer.WriteField("model_id", t.model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+elevenLabsSTTPath, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Provider: elevenLabsProvider, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TranscriptionError{
			Provider:   elevenLabsProvider,
			StatusCode: resp.StatusCode,
			Message:    httpclient.ErrorSnippet(resp.Body),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscriptionError{Provider: elevenLabsProvider, Message: "read response", Cause: err}
	}
	if !json.Valid(data) {
		return nil, &TranscriptionError{Provider: elevenLabsProvider, Message: "response is not JSON"}
	}
	return json.RawMessage(data), nil
}
