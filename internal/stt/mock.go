package stt

import (
	"context"
	"encoding/json"
	"fmt"
)

type mockTranscriber struct{}

func NewMockTranscriber() Transcriber {
	return &mockTranscriber{}
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio Audio) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{
		"text": fmt.Sprintf("[mock transcript bytes=%d]", len(audio.Data)),
	})
}
