// Package capture records microphone clips and plays synthesized replies
// through external commands.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-bisi/internal/config"
)

// ErrCapture marks failures to acquire audio. The loop treats them as fatal.
var ErrCapture = errors.New("audio capture failed")

// Recorder captures a clip of fixed duration.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, error)
}

// Player plays an encoded clip to completion.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

func NewRecorder(cfg config.CaptureConfig) (Recorder, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRecorder(cfg.SampleRate, cfg.Channels), nil
	case "exec":
		return NewExecRecorder(cfg.Command, cfg.Format, cfg.SampleRate, cfg.Channels)
	default:
		return nil, fmt.Errorf("unsupported capture mode %q", cfg.Mode)
	}
}

func NewPlayer(cfg config.PlaybackConfig) (Player, error) {
	switch cfg.Mode {
	case "none":
		return NopPlayer{}, nil
	case "exec":
		return NewExecPlayer(cfg.Command)
	default:
		return nil, fmt.Errorf("unsupported playback mode %q", cfg.Mode)
	}
}
