// Package proxy exposes the three vendor-forwarding endpoints. Handlers are
// stateless; vendor credentials live in the configured backends only.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loqalabs/loqa-bisi/internal/llm"
	"github.com/loqalabs/loqa-bisi/internal/protocol"
	"github.com/loqalabs/loqa-bisi/internal/stt"
	"github.com/loqalabs/loqa-bisi/internal/tts"
)

const (
	msgNoAudio          = "No audio file uploaded."
	msgAudioTooLarge    = "Audio file too large."
	msgInvalidBody      = "Invalid request body."
	msgTranscribeFailed = "Transcription failed"
	msgCompletionFailed = "Cohere failed"
	msgSynthesisFailed  = "TTS failed"
	defaultMaxUpload    = 25 << 20
	maxJSONBodyBytes    = 1 << 20
)

// Backends groups the vendor adapters the handlers forward to.
type Backends struct {
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Synthesizer tts.Synthesizer
}

type Handler struct {
	backends  Backends
	logger    *slog.Logger
	maxUpload int64
	metrics   *metrics
}

func New(backends Backends, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{
		backends:  backends,
		logger:    logger.With(slog.String("component", "proxy")),
		maxUpload: maxUploadBytes,
		metrics:   newMetrics(logger),
	}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Post(protocol.PathTranscribe, h.handleTranscribe)
	r.Post(protocol.PathComplete, h.handleComplete)
	r.Post(protocol.PathSynthesize, h.handleSynthesize)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	const endpoint = "transcribe"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(protocol.FormFieldAudio)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(r.Context(), w, endpoint, http.StatusRequestEntityTooLarge, msgAudioTooLarge)
			return
		}
		h.reject(r.Context(), w, endpoint, http.StatusBadRequest, msgNoAudio)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.reject(r.Context(), w, endpoint, http.StatusBadRequest, msgNoAudio)
		return
	}

	audio := stt.Audio{
		Data:        data,
		Filename:    protocol.UploadFilename,
		ContentType: header.Header.Get("Content-Type"),
	}
	start := time.Now()
	body, err := h.backends.Transcriber.Transcribe(r.Context(), audio)
	h.metrics.vendorCall(r.Context(), endpoint, time.Since(start), err)
	if err != nil {
		h.vendorFailure(r.Context(), w, endpoint, msgTranscribeFailed, err)
		return
	}
	h.metrics.request(r.Context(), endpoint, outcomeOK)
	writeRawJSON(w, body)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	const endpoint = "complete"
	var req protocol.CompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejecting completion body", slogError(err))
		h.reject(r.Context(), w, endpoint, http.StatusBadRequest, msgInvalidBody)
		return
	}

	start := time.Now()
	body, err := h.backends.Generator.Generate(r.Context(), llm.Request{
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	h.metrics.vendorCall(r.Context(), endpoint, time.Since(start), err)
	if err != nil {
		h.vendorFailure(r.Context(), w, endpoint, msgCompletionFailed, err)
		return
	}
	h.metrics.request(r.Context(), endpoint, outcomeOK)
	writeRawJSON(w, body)
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	const endpoint = "synthesize"
	var req protocol.SynthesisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejecting synthesis body", slogError(err))
		h.reject(r.Context(), w, endpoint, http.StatusBadRequest, msgInvalidBody)
		return
	}

	start := time.Now()
	res, err := h.backends.Synthesizer.Synthesize(r.Context(), tts.SynthRequest{Text: req.Text})
	h.metrics.vendorCall(r.Context(), endpoint, time.Since(start), err)
	if err != nil {
		h.vendorFailure(r.Context(), w, endpoint, msgSynthesisFailed, err)
		return
	}
	h.metrics.request(r.Context(), endpoint, outcomeOK)
	w.Header().Set("Content-Type", protocol.ContentTypeAudio)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, endpoint string, status int, msg string) {
	h.metrics.request(ctx, endpoint, outcomeRejected)
	writeError(w, status, msg)
}

// vendorFailure logs the full cause and answers with a fixed body; vendor
// detail never reaches the caller.
func (h *Handler) vendorFailure(ctx context.Context, w http.ResponseWriter, endpoint, msg string, err error) {
	h.metrics.request(ctx, endpoint, outcomeVendorError)
	h.logger.Error("vendor call failed", slog.String("endpoint", endpoint), slogError(err))
	writeError(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeRawJSON(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", protocol.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", protocol.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: msg})
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
