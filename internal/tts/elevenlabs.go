package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/httpclient"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"

	// ElevenLabsModelMultilingual is the multilingual v2 model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"

	defaultElevenLabsTimeout = 30 * time.Second

	elevenLabsDefaultStability       = 0.4
	elevenLabsDefaultSimilarityBoost = 0.8

	contentTypeMPEG = "audio/mpeg"
)

// ElevenLabsService implements Synthesizer using the ElevenLabs API.
type ElevenLabsService struct {
	apiKey          string
	voiceID         string
	baseURL         string
	model           string
	stability       float64
	similarityBoost float64
	client          *http.Client
}

// ElevenLabsOption configures the ElevenLabs service.
type ElevenLabsOption func(*ElevenLabsService)

func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) { s.baseURL = strings.TrimRight(url, "/") }
}

func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsService) { s.client = client }
}

func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		if model != "" {
			s.model = model
		}
	}
}

func WithElevenLabsVoiceSettings(stability, similarityBoost float64) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.stability = stability
		s.similarityBoost = similarityBoost
	}
}

func NewElevenLabs(apiKey, voiceID string, opts ...ElevenLabsOption) *ElevenLabsService {
	s := &ElevenLabsService{
		apiKey:          apiKey,
		voiceID:         voiceID,
		baseURL:         elevenLabsBaseURL,
		model:           ElevenLabsModelMultilingual,
		stability:       elevenLabsDefaultStability,
		similarityBoost: elevenLabsDefaultSimilarityBoost,
		client:          httpclient.New(defaultElevenLabsTimeout),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (s *ElevenLabsService) Synthesize(ctx context.Context, req SynthRequest) (SynthResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return SynthResult{}, ErrEmptyText
	}
	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: s.model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       s.stability,
			SimilarityBoost: s.similarityBoost,
		},
	})
	if err != nil {
		return SynthResult{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, s.voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return SynthResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentTypeMPEG)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SynthResult{}, &SynthesisError{Provider: "elevenlabs", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return SynthResult{}, &SynthesisError{
			Provider:   "elevenlabs",
			StatusCode: resp.StatusCode,
			Message:    httpclient.ErrorSnippet(resp.Body),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return SynthResult{}, &SynthesisError{Provider: "elevenlabs", Message: "read audio", Cause: err}
	}
	return SynthResult{Audio: audio, ContentType: contentTypeMPEG}, nil
}
