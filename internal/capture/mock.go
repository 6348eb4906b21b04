package capture

import (
	"context"
	"fmt"
	"time"
)

type mockRecorder struct {
	sampleRate int
	channels   int
}

// NewMockRecorder returns a recorder that waits for the clip duration and
// yields silence.
func NewMockRecorder(sampleRate, channels int) Recorder {
	return &mockRecorder{sampleRate: sampleRate, channels: channels}
}

func (m *mockRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	frames := int(d.Seconds() * float64(m.sampleRate))
	clip, err := encodeWAV(make([]byte, frames*m.channels*2), m.sampleRate, m.channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return clip, nil
}

// NopPlayer discards audio.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }
