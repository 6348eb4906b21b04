package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/loqalabs/loqa-bisi/internal/apiclient"
)

// runTurn performs one record, transcribe, reply, speak cycle. Only capture
// failures are returned; every other failure ends the turn early.
func (s *Session) runTurn(ctx context.Context, logger *slog.Logger) error {
	s.display.Show(StatusListening)
	recordCtx, cancel := context.WithTimeout(ctx, s.opts.RecordDuration+s.opts.CallTimeout)
	clip, err := s.recorder.Record(recordCtx, s.opts.RecordDuration)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("record: %w", err)
	}

	text := s.transcribe(ctx, logger, clip)
	if !s.listening(ctx) {
		return nil
	}
	if text == "" {
		s.display.Show(StatusNoSpeech)
		return nil
	}
	logger.Debug("transcribed", slog.String("text", text))
	s.display.Show(youSaid(text))

	reply, language := s.respond(ctx, logger, text)
	if !s.listening(ctx) {
		return nil
	}
	if reply == "" {
		s.display.Show(StatusNoReply)
		return nil
	}
	logger.Debug("reply", slog.String("language", language), slog.String("text", reply))
	s.display.Show(bisiSays(language, reply))

	audio := s.synthesize(ctx, logger, reply)
	if len(audio) == 0 || !s.listening(ctx) {
		return nil
	}
	if err := s.player.Play(ctx, audio); err != nil {
		logger.Warn("playback failed", slogError(err))
	}
	return nil
}

func (s *Session) transcribe(ctx context.Context, logger *slog.Logger, clip []byte) string {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	text, err := s.api.Transcribe(callCtx, clip)
	if err != nil {
		logger.Warn("transcription failed", slogError(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// respond detects the language of text and asks for a reply in it. An error
// answer from the proxy counts as missing text and falls back to defaults; a
// transport failure yields no reply at all.
func (s *Session) respond(ctx context.Context, logger *slog.Logger, text string) (reply, language string) {
	language, err := s.complete(ctx, detectLanguagePrompt(text), detectMaxTokens)
	if err != nil {
		logger.Warn("language detection failed", slogError(err))
		return "", defaultLanguage
	}
	if language == "" {
		language = defaultLanguage
	}

	reply, err = s.complete(ctx, replyPrompt(text, language), replyMaxTokens)
	if err != nil {
		logger.Warn("reply generation failed", slogError(err))
		return "", defaultLanguage
	}
	if reply == "" {
		reply = fallbackReply
	}
	return reply, language
}

func (s *Session) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	text, err := s.api.Complete(callCtx, prompt, maxTokens)
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		s.logger.Debug("completion returned error status", slogError(err))
		return strings.TrimSpace(text), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *Session) synthesize(ctx context.Context, logger *slog.Logger, reply string) []byte {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	audio, err := s.api.Synthesize(callCtx, reply)
	if err != nil {
		logger.Warn("synthesis failed", slogError(err))
		return nil
	}
	return audio
}
