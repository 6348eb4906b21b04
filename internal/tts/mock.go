package tts

import (
	"context"
	"time"
)

// mockAudio is an ID3 header followed by an empty MPEG frame marker.
var mockAudio = []byte{'I', 'D', '3', 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xfb}

type mockSynth struct{}

func NewMockSynth() Synthesizer {
	return &mockSynth{}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (SynthResult, error) {
	if req.Text == "" {
		return SynthResult{}, ErrEmptyText
	}
	select {
	case <-ctx.Done():
		return SynthResult{}, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return SynthResult{Audio: append([]byte(nil), mockAudio...), ContentType: contentTypeMPEG}, nil
}
