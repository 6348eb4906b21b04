package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	Traces       string `yaml:"traces"` // none, stdout, otlp
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	MetricsPath  string `yaml:"metrics_path"`
}

// Level maps log_level to a slog level, defaulting to info.
func (t TelemetryConfig) Level() slog.Level {
	switch strings.ToLower(t.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	STT         STTConfig       `yaml:"stt"`
	LLM         LLMConfig       `yaml:"llm"`
	TTS         TTSConfig       `yaml:"tts"`
	Client      ClientConfig    `yaml:"client"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"` // elevenlabs, mock
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // cohere, ollama, mock
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

type TTSConfig struct {
	Mode            string  `yaml:"mode"` // elevenlabs, mock
	Endpoint        string  `yaml:"endpoint"`
	APIKey          string  `yaml:"api_key"`
	VoiceID         string  `yaml:"voice_id"`
	Model           string  `yaml:"model"`
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
	TimeoutMS       int     `yaml:"timeout_ms"`
}

// ClientConfig drives the terminal capture/playback loop.
type ClientConfig struct {
	ServerURL        string         `yaml:"server_url"`
	RecordSeconds    int            `yaml:"record_seconds"`
	RequestTimeoutMS int            `yaml:"request_timeout_ms"`
	AbortInFlight    bool           `yaml:"abort_in_flight"`
	Capture          CaptureConfig  `yaml:"capture"`
	Playback         PlaybackConfig `yaml:"playback"`
}

type CaptureConfig struct {
	Mode       string `yaml:"mode"` // exec, mock
	Command    string `yaml:"command"`
	Format     string `yaml:"format"` // pcm, wav
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type PlaybackConfig struct {
	Mode    string `yaml:"mode"` // exec, none
	Command string `yaml:"command"`
}

func Default() Config {
	return Config{
		ServiceName: "bisi",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:           "0.0.0.0",
			Port:           3000,
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 25 << 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			Traces:       "none",
			OTLPInsecure: true,
			MetricsPath:  "/metrics",
		},
		STT: STTConfig{
			Mode:      "elevenlabs",
			Model:     "scribe_v1",
			TimeoutMS: 30000,
		},
		LLM: LLMConfig{
			Mode:        "cohere",
			Model:       "command-r-plus",
			Temperature: 0.7,
			TimeoutMS:   30000,
		},
		TTS: TTSConfig{
			Mode:            "elevenlabs",
			Model:           "eleven_multilingual_v2",
			Stability:       0.4,
			SimilarityBoost: 0.8,
			TimeoutMS:       30000,
		},
		Client: ClientConfig{
			ServerURL:        "http://localhost:3000",
			RecordSeconds:    5,
			RequestTimeoutMS: 45000,
			Capture: CaptureConfig{
				Mode:       "exec",
				Command:    "arecord -q -f S16_LE -r 16000 -c 1 -t raw -d {seconds}",
				Format:     "pcm",
				SampleRate: 16000,
				Channels:   1,
			},
			Playback: PlaybackConfig{
				Mode:    "exec",
				Command: "mpg123 -q -",
			},
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Vendor credentials keep their conventional names.
	overrideString(&cfg.STT.APIKey, "ELEVENLABS_API_KEY")
	overrideString(&cfg.TTS.APIKey, "ELEVENLABS_API_KEY")
	overrideString(&cfg.TTS.VoiceID, "ELEVENLABS_VOICE_ID")
	overrideString(&cfg.LLM.APIKey, "COHERE_API_KEY")
	overrideInt(&cfg.HTTP.Port, "PORT")

	overrideString(&cfg.ServiceName, "BISI_SERVICE_NAME")
	overrideString(&cfg.Environment, "BISI_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "BISI_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "BISI_HTTP_PORT")
	overrideString(&cfg.HTTP.StaticDir, "BISI_HTTP_STATIC_DIR")
	overrideStringSlice(&cfg.HTTP.AllowedOrigins, "BISI_HTTP_ALLOWED_ORIGINS")
	overrideInt64(&cfg.HTTP.MaxUploadBytes, "BISI_HTTP_MAX_UPLOAD_BYTES")
	overrideString(&cfg.Telemetry.LogLevel, "BISI_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.Traces, "BISI_TELEMETRY_TRACES")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "BISI_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "BISI_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.MetricsPath, "BISI_TELEMETRY_METRICS_PATH")
	overrideString(&cfg.STT.Mode, "BISI_STT_MODE")
	overrideString(&cfg.STT.Endpoint, "BISI_STT_ENDPOINT")
	overrideString(&cfg.STT.Model, "BISI_STT_MODEL")
	overrideInt(&cfg.STT.TimeoutMS, "BISI_STT_TIMEOUT_MS")
	overrideString(&cfg.LLM.Mode, "BISI_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "BISI_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "BISI_LLM_MODEL")
	overrideFloat(&cfg.LLM.Temperature, "BISI_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutMS, "BISI_LLM_TIMEOUT_MS")
	overrideString(&cfg.TTS.Mode, "BISI_TTS_MODE")
	overrideString(&cfg.TTS.Endpoint, "BISI_TTS_ENDPOINT")
	overrideString(&cfg.TTS.Model, "BISI_TTS_MODEL")
	overrideFloat(&cfg.TTS.Stability, "BISI_TTS_STABILITY")
	overrideFloat(&cfg.TTS.SimilarityBoost, "BISI_TTS_SIMILARITY_BOOST")
	overrideInt(&cfg.TTS.TimeoutMS, "BISI_TTS_TIMEOUT_MS")
	overrideString(&cfg.Client.ServerURL, "BISI_CLIENT_SERVER_URL")
	overrideInt(&cfg.Client.RecordSeconds, "BISI_CLIENT_RECORD_SECONDS")
	overrideInt(&cfg.Client.RequestTimeoutMS, "BISI_CLIENT_REQUEST_TIMEOUT_MS")
	overrideBool(&cfg.Client.AbortInFlight, "BISI_CLIENT_ABORT_IN_FLIGHT")
	overrideString(&cfg.Client.Capture.Mode, "BISI_CAPTURE_MODE")
	overrideString(&cfg.Client.Capture.Command, "BISI_CAPTURE_COMMAND")
	overrideString(&cfg.Client.Capture.Format, "BISI_CAPTURE_FORMAT")
	overrideInt(&cfg.Client.Capture.SampleRate, "BISI_CAPTURE_SAMPLE_RATE")
	overrideInt(&cfg.Client.Capture.Channels, "BISI_CAPTURE_CHANNELS")
	overrideString(&cfg.Client.Playback.Mode, "BISI_PLAYBACK_MODE")
	overrideString(&cfg.Client.Playback.Command, "BISI_PLAYBACK_COMMAND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.max_upload_bytes must be positive")
	}
	switch cfg.Telemetry.Traces {
	case "none", "stdout":
	case "otlp":
		if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
			return errors.New("telemetry.otlp_endpoint must be set when traces=otlp")
		}
	default:
		return errors.New("telemetry.traces must be one of none|stdout|otlp")
	}
	if !strings.HasPrefix(cfg.Telemetry.MetricsPath, "/") {
		return errors.New("telemetry.metrics_path must start with /")
	}
	switch cfg.STT.Mode {
	case "elevenlabs", "mock":
	default:
		return errors.New("stt.mode must be one of elevenlabs|mock")
	}
	if cfg.STT.TimeoutMS <= 0 {
		return errors.New("stt.timeout_ms must be positive")
	}
	switch cfg.LLM.Mode {
	case "cohere", "ollama", "mock":
	default:
		return errors.New("llm.mode must be one of cohere|ollama|mock")
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model must not be empty")
	}
	if cfg.LLM.TimeoutMS <= 0 {
		return errors.New("llm.timeout_ms must be positive")
	}
	switch cfg.TTS.Mode {
	case "elevenlabs", "mock":
	default:
		return errors.New("tts.mode must be one of elevenlabs|mock")
	}
	if cfg.TTS.TimeoutMS <= 0 {
		return errors.New("tts.timeout_ms must be positive")
	}
	if cfg.Client.RecordSeconds <= 0 {
		return errors.New("client.record_seconds must be positive")
	}
	if cfg.Client.RequestTimeoutMS <= 0 {
		return errors.New("client.request_timeout_ms must be positive")
	}
	switch cfg.Client.Capture.Mode {
	case "mock":
	case "exec":
		if cfg.Client.Capture.Command == "" {
			return errors.New("client.capture.command must be set when mode=exec")
		}
	default:
		return errors.New("client.capture.mode must be one of exec|mock")
	}
	switch cfg.Client.Capture.Format {
	case "pcm", "wav":
	default:
		return errors.New("client.capture.format must be one of pcm|wav")
	}
	if cfg.Client.Capture.SampleRate <= 0 {
		return errors.New("client.capture.sample_rate must be positive")
	}
	if cfg.Client.Capture.Channels <= 0 {
		return errors.New("client.capture.channels must be positive")
	}
	switch cfg.Client.Playback.Mode {
	case "none":
	case "exec":
		if cfg.Client.Playback.Command == "" {
			return errors.New("client.playback.command must be set when mode=exec")
		}
	default:
		return errors.New("client.playback.mode must be one of exec|none")
	}
	return nil
}

// RequireCredentials reports vendor credentials missing for the configured
// backends. Only the proxy server needs them.
func (c Config) RequireCredentials() error {
	var errs []error
	if c.STT.Mode == "elevenlabs" && c.STT.APIKey == "" {
		errs = append(errs, errors.New("stt.api_key (ELEVENLABS_API_KEY) must be set when stt.mode=elevenlabs"))
	}
	if c.LLM.Mode == "cohere" && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key (COHERE_API_KEY) must be set when llm.mode=cohere"))
	}
	if c.TTS.Mode == "elevenlabs" {
		if c.TTS.APIKey == "" {
			errs = append(errs, errors.New("tts.api_key (ELEVENLABS_API_KEY) must be set when tts.mode=elevenlabs"))
		}
		if c.TTS.VoiceID == "" {
			errs = append(errs, errors.New("tts.voice_id (ELEVENLABS_VOICE_ID) must be set when tts.mode=elevenlabs"))
		}
	}
	return errors.Join(errs...)
}
