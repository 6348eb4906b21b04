package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-bisi/internal/config"
)

func TestExecRecorderWrapsPCM(t *testing.T) {
	rec, err := NewExecRecorder(`printf '\001\000\377\177'`, "pcm", 16000, 1)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	clip, err := rec.Record(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !bytes.HasPrefix(clip, []byte("RIFF")) {
		t.Fatalf("output is not a wav file")
	}
	dec := wav.NewDecoder(bytes.NewReader(clip))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 {
		t.Fatalf("unexpected format %d Hz %d ch", dec.SampleRate, dec.NumChans)
	}
	if len(buf.Data) != 2 || buf.Data[0] != 1 || buf.Data[1] != 32767 {
		t.Fatalf("unexpected samples %v", buf.Data)
	}
}

func TestExecRecorderSubstitutesSeconds(t *testing.T) {
	rec, err := NewExecRecorder("echo -n {seconds}", "wav", 16000, 1)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	clip, err := rec.Record(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if string(clip) != "5" {
		t.Fatalf("expected placeholder substitution, got %q", clip)
	}
}

func TestExecRecorderFailureIsCaptureError(t *testing.T) {
	rec, err := NewExecRecorder("false", "wav", 16000, 1)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := rec.Record(context.Background(), time.Second); !errors.Is(err, ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}

	rec, _ = NewExecRecorder("true", "wav", 16000, 1)
	if _, err := rec.Record(context.Background(), time.Second); !errors.Is(err, ErrCapture) {
		t.Fatalf("expected ErrCapture for empty output, got %v", err)
	}
}

func TestExecPlayerPipesAudio(t *testing.T) {
	out := filepath.Join(t.TempDir(), "played.mp3")
	player, err := NewExecPlayer("tee " + out)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := player.Play(context.Background(), []byte("mp3-bytes")); err != nil {
		t.Fatalf("play: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "mp3-bytes" {
		t.Fatalf("player received %q", got)
	}
}

func TestEmptyCommandRejected(t *testing.T) {
	if _, err := NewExecRecorder("  ", "pcm", 16000, 1); err == nil {
		t.Fatalf("expected error for empty command")
	}
	if _, err := NewExecPlayer(""); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestMockRecorderProducesSilence(t *testing.T) {
	rec := NewMockRecorder(8000, 1)
	clip, err := rec.Record(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	dec := wav.NewDecoder(bytes.NewReader(clip))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buf.Data) != 800 {
		t.Fatalf("expected 800 samples, got %d", len(buf.Data))
	}
}

func TestMockRecorderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockRecorder(8000, 1).Record(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	if _, err := NewRecorder(config.CaptureConfig{Mode: "mock", SampleRate: 16000, Channels: 1}); err != nil {
		t.Fatalf("mock recorder: %v", err)
	}
	if _, err := NewRecorder(config.CaptureConfig{Mode: "alsa"}); err == nil {
		t.Fatalf("expected error for unknown capture mode")
	}
	player, err := NewPlayer(config.PlaybackConfig{Mode: "none"})
	if err != nil {
		t.Fatalf("none player: %v", err)
	}
	if err := player.Play(context.Background(), []byte("x")); err != nil {
		t.Fatalf("nop play: %v", err)
	}
}
