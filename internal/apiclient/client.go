// Package apiclient calls the proxy endpoints on behalf of the capture loop.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/httpclient"
	"github.com/loqalabs/loqa-bisi/internal/protocol"
)

// StatusError reports a non-2xx answer from the proxy.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New returns a client for the proxy at baseURL. Every call is bounded by
// timeout in addition to the caller's context.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads a clip and returns the transcript, trimmed.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(protocol.FormFieldAudio, protocol.UploadFilename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.post(ctx, protocol.PathTranscribe, mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", statusError(protocol.PathTranscribe, resp)
	}

	var out protocol.TranscriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	return strings.TrimSpace(out.Value()), nil
}

// Complete requests a completion and returns the trimmed text of the first
// generation. A non-2xx answer whose body is still JSON is decoded like a
// success: the caller sees empty text together with a *StatusError.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload, err := json.Marshal(protocol.CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, protocol.PathComplete, protocol.ContentTypeJSON, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}
	var out protocol.GenerationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr protocol.ErrorResponse
		_ = json.Unmarshal(data, &apiErr)
		return out.FirstText(), &StatusError{Endpoint: protocol.PathComplete, StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return out.FirstText(), nil
}

// Synthesize returns the encoded reply audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(protocol.SynthesisRequest{Text: text})
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, protocol.PathSynthesize, protocol.ContentTypeJSON, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError(protocol.PathSynthesize, resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}

func statusError(endpoint string, resp *http.Response) error {
	msg := httpclient.ErrorSnippet(resp.Body)
	var apiErr protocol.ErrorResponse
	if json.Unmarshal([]byte(msg), &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
}
