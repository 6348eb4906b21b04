package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Model != "command-r-plus" || cfg.LLM.Temperature != 0.7 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.TTS.Model != "eleven_multilingual_v2" || cfg.TTS.Stability != 0.4 || cfg.TTS.SimilarityBoost != 0.8 {
		t.Fatalf("unexpected tts defaults: %+v", cfg.TTS)
	}
	if cfg.Client.RecordSeconds != 5 {
		t.Fatalf("expected 5 second clips, got %d", cfg.Client.RecordSeconds)
	}
}

func TestVendorEnvOverrides(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "xi-secret")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice-123")
	t.Setenv("COHERE_API_KEY", "co-secret")
	t.Setenv("PORT", "8099")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.STT.APIKey != "xi-secret" || cfg.TTS.APIKey != "xi-secret" {
		t.Fatalf("expected elevenlabs key on stt and tts")
	}
	if cfg.TTS.VoiceID != "voice-123" {
		t.Fatalf("expected voice id override")
	}
	if cfg.LLM.APIKey != "co-secret" {
		t.Fatalf("expected cohere key override")
	}
	if cfg.HTTP.Port != 8099 {
		t.Fatalf("expected port 8099, got %d", cfg.HTTP.Port)
	}
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("expected credentials satisfied: %v", err)
	}
}

func TestPrefixedEnvOverrides(t *testing.T) {
	t.Setenv("BISI_HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BISI_LLM_MODE", "mock")
	t.Setenv("BISI_CLIENT_ABORT_IN_FLIGHT", "true")
	t.Setenv("BISI_CLIENT_RECORD_SECONDS", "3")
	t.Setenv("BISI_CAPTURE_MODE", "mock")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.LLM.Mode != "mock" {
		t.Fatalf("expected llm mode override")
	}
	if !cfg.Client.AbortInFlight {
		t.Fatalf("expected abort_in_flight override")
	}
	if cfg.Client.RecordSeconds != 3 {
		t.Fatalf("expected record seconds override")
	}
	if cfg.Client.Capture.Mode != "mock" {
		t.Fatalf("expected capture mode override")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bisi.yaml")
	data := []byte(`
http:
  port: 4000
llm:
  mode: ollama
  endpoint: http://localhost:11434
  model: llama3.2:latest
tts:
  mode: mock
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 4000 {
		t.Fatalf("expected port from file, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Mode != "ollama" || cfg.LLM.Model != "llama3.2:latest" {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.TTS.Model != "eleven_multilingual_v2" {
		t.Fatalf("expected defaults preserved for unset keys")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	t.Setenv("BISI_STT_MODE", "whisper")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for unknown stt mode")
	}
}

func TestValidateOTLPNeedsEndpoint(t *testing.T) {
	t.Setenv("BISI_TELEMETRY_TRACES", "otlp")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error when otlp endpoint missing")
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireCredentials(); err == nil {
		t.Fatalf("expected missing credential error")
	}
	cfg.STT.Mode = "mock"
	cfg.LLM.Mode = "mock"
	cfg.TTS.Mode = "mock"
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("mock backends need no credentials: %v", err)
	}
}

func TestTelemetryLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (TelemetryConfig{LogLevel: in}).Level(); got != want {
			t.Fatalf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}
