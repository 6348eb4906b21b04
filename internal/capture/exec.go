package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

const secondsPlaceholder = "{seconds}"

type execRecorder struct {
	cmd        []string
	format     string
	sampleRate int
	channels   int
}

// NewExecRecorder runs command once per clip and reads the audio from its
// stdout. {seconds} in any argument is replaced with the clip length. With
// format "pcm" the output is 16-bit little endian PCM and is wrapped as WAV.
func NewExecRecorder(command, format string, sampleRate, channels int) (Recorder, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	return &execRecorder{cmd: args, format: format, sampleRate: sampleRate, channels: channels}, nil
}

func (r *execRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	seconds := strconv.Itoa(int(d.Round(time.Second) / time.Second))
	args := make([]string, len(r.cmd))
	for i, arg := range r.cmd {
		args[i] = strings.ReplaceAll(arg, secondsPlaceholder, seconds)
	}

	command := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCapture, args[0], err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no audio", ErrCapture, args[0])
	}
	if r.format == "wav" {
		return stdout.Bytes(), nil
	}
	clip, err := encodeWAV(stdout.Bytes(), r.sampleRate, r.channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return clip, nil
}

type execPlayer struct {
	cmd []string
}

// NewExecPlayer pipes each clip to command's stdin.
func NewExecPlayer(command string) (Player, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("parse playback command: %w", err)
	}
	return &execPlayer{cmd: args}, nil
}

func (p *execPlayer) Play(ctx context.Context, audio []byte) error {
	command := exec.CommandContext(ctx, p.cmd[0], p.cmd[1:]...)
	command.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("playback command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func parseCommand(command string) ([]string, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	return args, nil
}
