package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/loqalabs/loqa-bisi/internal/config"
	"github.com/loqalabs/loqa-bisi/internal/llm"
	"github.com/loqalabs/loqa-bisi/internal/proxy"
	"github.com/loqalabs/loqa-bisi/internal/stt"
	"github.com/loqalabs/loqa-bisi/internal/tts"
	"github.com/loqalabs/loqa-bisi/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start serves the proxy until ctx is cancelled, then shuts down gracefully.
func (r *Runtime) Start(ctx context.Context) error {
	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	backends, err := buildBackends(r.cfg)
	if err != nil {
		r.closeTelemetry(context.Background())
		return err
	}
	handler, err := r.routes(backends, metricsHandler)
	if err != nil {
		r.closeTelemetry(context.Background())
		return err
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		r.closeTelemetry(context.Background())
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	r.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			serveErr <- err
		}
	}()

	r.ready.Store(true)
	r.logger.Info("server running",
		slog.String("addr", listener.Addr().String()),
		slog.String("stt", r.cfg.STT.Mode),
		slog.String("llm", r.cfg.LLM.Mode),
		slog.String("tts", r.cfg.TTS.Mode),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()
	r.closeTelemetry(shutdownCtx)

	return runErr
}

func (r *Runtime) closeTelemetry(ctx context.Context) {
	if r.tracerClose == nil {
		return
	}
	if err := r.tracerClose(ctx); err != nil {
		r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}
}

func buildBackends(cfg config.Config) (proxy.Backends, error) {
	transcriber, err := stt.New(cfg.STT)
	if err != nil {
		return proxy.Backends{}, fmt.Errorf("init stt: %w", err)
	}
	generator, err := llm.New(cfg.LLM)
	if err != nil {
		return proxy.Backends{}, fmt.Errorf("init llm: %w", err)
	}
	synthesizer, err := tts.New(cfg.TTS)
	if err != nil {
		return proxy.Backends{}, fmt.Errorf("init tts: %w", err)
	}
	return proxy.Backends{
		Transcriber: transcriber,
		Generator:   generator,
		Synthesizer: synthesizer,
	}, nil
}

func (r *Runtime) routes(backends proxy.Backends, metricsHandler http.Handler) (http.Handler, error) {
	static, err := r.staticFiles()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: r.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", r.handleHealth)
	router.Get("/readyz", r.handleReady)
	if metricsHandler != nil {
		router.Method(http.MethodGet, r.cfg.Telemetry.MetricsPath, metricsHandler)
	}
	proxy.New(backends, r.cfg.HTTP.MaxUploadBytes, r.logger).Register(router)
	router.Handle("/*", http.FileServer(http.FS(static)))

	return otelhttp.NewHandler(router, r.cfg.ServiceName), nil
}

func (r *Runtime) staticFiles() (fs.FS, error) {
	dir := r.cfg.HTTP.StaticDir
	if dir == "" {
		return web.Static(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
