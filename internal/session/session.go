// Package session runs the capture/playback conversation loop.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-bisi/internal/capture"
)

type State int

const (
	StateIdle State = iota
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// API is the proxy surface the loop talks to.
type API interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Display shows one status line at a time.
type Display interface {
	Show(status string)
}

type DisplayFunc func(string)

func (f DisplayFunc) Show(status string) { f(status) }

type Options struct {
	RecordDuration time.Duration
	CallTimeout    time.Duration
	// AbortInFlight cancels running calls on Stop instead of letting them
	// finish and discarding their result.
	AbortInFlight bool
}

type Session struct {
	api      API
	recorder capture.Recorder
	player   capture.Player
	display  Display
	opts     Options
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	id     string
	err    error
}

func New(api API, recorder capture.Recorder, player capture.Player, display Display, opts Options, logger *slog.Logger) *Session {
	if opts.RecordDuration <= 0 {
		opts.RecordDuration = 5 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 45 * time.Second
	}
	return &Session{
		api:      api,
		recorder: recorder,
		player:   player,
		display:  display,
		opts:     opts,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// Toggle stops a listening session and starts (or resumes) any other.
func (s *Session) Toggle(ctx context.Context) {
	s.mu.Lock()
	listening := s.state == StateListening
	s.mu.Unlock()
	if listening {
		s.Stop()
		return
	}
	s.Start(ctx)
}

// Start begins listening. While a previous loop is still stopping it is
// resumed, unless in-flight calls are being aborted, in which case Start
// waits for that loop to exit and launches a new one.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	switch s.state {
	case StateListening:
		s.mu.Unlock()
		return
	case StateStopping:
		if !s.opts.AbortInFlight {
			s.state = StateListening
			id := s.id
			s.mu.Unlock()
			s.logger.Info("session resumed", slog.String("session_id", id))
			return
		}
		done := s.done
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		if s.state != StateIdle {
			s.mu.Unlock()
			return
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	id := uuid.NewString()
	s.state = StateListening
	s.cancel = cancel
	s.done = done
	s.id = id
	s.err = nil
	s.mu.Unlock()

	s.logger.Info("session started", slog.String("session_id", id))
	go s.run(loopCtx, id, done)
}

// Stop requests the loop to end after the step in flight.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	if s.opts.AbortInFlight && s.cancel != nil {
		s.cancel()
	}
	id := s.id
	s.mu.Unlock()

	s.logger.Info("session stopping", slog.String("session_id", id))
	s.display.Show(StatusStopped)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the current loop exits.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

func (s *Session) Wait() {
	<-s.Done()
}

// Err returns the error that ended the last loop, if it was fatal.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) run(ctx context.Context, id string, done chan struct{}) {
	logger := s.logger.With(slog.String("session_id", id))
	turns := 0
	for s.continueOrFinish(ctx, done, nil) {
		turns++
		err := s.runTurn(ctx, logger.With(slog.Int("turn", turns)))
		if err == nil || ctx.Err() != nil {
			continue
		}
		logger.Error("session failed", slogError(err))
		s.display.Show(StatusFailed)
		s.continueOrFinish(ctx, done, err)
		break
	}
	logger.Info("session ended", slog.Int("turns", turns))
}

// continueOrFinish reports whether another turn should run. When it should
// not, the session moves to Idle and done is closed in the same critical
// section, so a concurrent Start either resumes this loop or sees Idle.
func (s *Session) continueOrFinish(ctx context.Context, done chan struct{}, fatal error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fatal == nil && ctx.Err() == nil && s.state == StateListening {
		return true
	}
	s.state = StateIdle
	s.err = fatal
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(done)
	return false
}

func (s *Session) listening(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateListening
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
