package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/loqalabs/loqa-bisi/internal/llm"
	"github.com/loqalabs/loqa-bisi/internal/protocol"
	"github.com/loqalabs/loqa-bisi/internal/stt"
	"github.com/loqalabs/loqa-bisi/internal/tts"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls []stt.Audio
	body  string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio stt.Audio) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, audio)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []llm.Request
	body  string
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

type fakeSynth struct {
	calls []string
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, req tts.SynthRequest) (tts.SynthResult, error) {
	f.calls = append(f.calls, req.Text)
	if f.err != nil {
		return tts.SynthResult{}, f.err
	}
	return tts.SynthResult{Audio: f.audio, ContentType: "audio/mpeg"}, nil
}

func newTestServer(t *testing.T, b Backends) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(b, 1<<20, logger).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	} else {
		_ = mw.WriteField("note", "no file here")
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body protocol.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestTranscribeWithoutFileIsRejected(t *testing.T) {
	transcriber := &fakeTranscriber{body: `{"text":"hi"}`}
	srv := newTestServer(t, Backends{Transcriber: transcriber})

	body, ct := multipartBody(t, "", "", nil)
	resp, err := http.Post(srv.URL+protocol.PathTranscribe, ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "No audio file uploaded." {
		t.Fatalf("error = %q", msg)
	}
	if len(transcriber.calls) != 0 {
		t.Fatalf("vendor must not be called, got %d calls", len(transcriber.calls))
	}
}

func TestTranscribeNonMultipartIsRejected(t *testing.T) {
	transcriber := &fakeTranscriber{}
	srv := newTestServer(t, Backends{Transcriber: transcriber})

	resp, err := http.Post(srv.URL+protocol.PathTranscribe, "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(transcriber.calls) != 0 {
		t.Fatalf("vendor must not be called")
	}
}

func TestTranscribeRelaysVendorJSON(t *testing.T) {
	vendor := `{"language_code":"spa","text":"Hola, ¿cómo estás?"}`
	transcriber := &fakeTranscriber{body: vendor}
	srv := newTestServer(t, Backends{Transcriber: transcriber})

	body, ct := multipartBody(t, "file", "clip.webm", []byte("audio-bytes"))
	resp, err := http.Post(srv.URL+protocol.PathTranscribe, ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != vendor {
		t.Fatalf("body = %s, want verbatim vendor json", got)
	}
	if len(transcriber.calls) != 1 {
		t.Fatalf("expected one vendor call")
	}
	call := transcriber.calls[0]
	if string(call.Data) != "audio-bytes" {
		t.Fatalf("audio not forwarded unmodified: %q", call.Data)
	}
	if call.Filename != "recording.wav" {
		t.Fatalf("filename = %q", call.Filename)
	}
}

func TestTranscribeVendorFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: &stt.TranscriptionError{Provider: "elevenlabs", StatusCode: 401, Message: "invalid api key sk-123"}}
	srv := newTestServer(t, Backends{Transcriber: transcriber})

	body, ct := multipartBody(t, "file", "recording.wav", []byte("x"))
	resp, err := http.Post(srv.URL+protocol.PathTranscribe, ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Transcription failed" {
		t.Fatalf("error = %q", msg)
	}
}

func TestCompleteForwardsPromptAndRelaysJSON(t *testing.T) {
	vendor := `{"id":"x","generations":[{"id":"g","text":" Spanish"}]}`
	gen := &fakeGenerator{body: vendor}
	srv := newTestServer(t, Backends{Generator: gen})

	resp, err := http.Post(srv.URL+protocol.PathComplete, "application/json",
		strings.NewReader(`{"prompt":"Detect","max_tokens":5,"model":"other","temperature":2}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != vendor {
		t.Fatalf("body = %s", got)
	}
	if len(gen.calls) != 1 || gen.calls[0].Prompt != "Detect" || gen.calls[0].MaxTokens != 5 {
		t.Fatalf("unexpected forwarded request %+v", gen.calls)
	}
}

func TestCompleteMalformedBody(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(t, Backends{Generator: gen})

	resp, err := http.Post(srv.URL+protocol.PathComplete, "application/json", strings.NewReader(`{"prompt":`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Invalid request body." {
		t.Fatalf("error = %q", msg)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("vendor must not be called")
	}
}

func TestCompleteVendorFailure(t *testing.T) {
	gen := &fakeGenerator{err: &llm.CompletionError{Provider: "cohere", StatusCode: 429, Message: "rate limited"}}
	srv := newTestServer(t, Backends{Generator: gen})

	resp, err := http.Post(srv.URL+protocol.PathComplete, "application/json", strings.NewReader(`{"prompt":"hi","max_tokens":5}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Cohere failed" {
		t.Fatalf("error = %q", msg)
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	synth := &fakeSynth{audio: []byte("mp3")}
	srv := newTestServer(t, Backends{Synthesizer: synth})

	resp, err := http.Post(srv.URL+protocol.PathSynthesize, "application/json", strings.NewReader(`{"text":"¡Hola!"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("content type = %q", ct)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != "mp3" {
		t.Fatalf("body = %q", got)
	}
	if len(synth.calls) != 1 || synth.calls[0] != "¡Hola!" {
		t.Fatalf("unexpected synth calls %v", synth.calls)
	}
}

func TestSynthesizeVendorFailure(t *testing.T) {
	synth := &fakeSynth{err: errors.New("dial tcp: connection refused")}
	srv := newTestServer(t, Backends{Synthesizer: synth})

	resp, err := http.Post(srv.URL+protocol.PathSynthesize, "application/json", strings.NewReader(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "connection refused") {
		t.Fatalf("vendor detail leaked: %s", body)
	}
	if !strings.Contains(string(body), `"TTS failed"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestCompleteUsesServerSideModelAndCredentials(t *testing.T) {
	var got map[string]any
	var auth string
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"generations":[{"text":"ok"}]}`))
	}))
	defer vendor.Close()

	gen := llm.NewCohereGenerator("server-key", vendor.URL, "command-r-plus", 0.7, vendor.Client())
	srv := newTestServer(t, Backends{Generator: gen})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+protocol.PathComplete,
		strings.NewReader(`{"prompt":"hi","max_tokens":200,"model":"rogue","temperature":1.5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer caller-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got["model"] != "command-r-plus" || got["temperature"] != 0.7 {
		t.Fatalf("vendor saw model=%v temperature=%v", got["model"], got["temperature"])
	}
	if got["max_tokens"] != float64(200) {
		t.Fatalf("max_tokens = %v", got["max_tokens"])
	}
	if auth != "Bearer server-key" {
		t.Fatalf("authorization = %q", auth)
	}
}
