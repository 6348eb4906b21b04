package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/loqalabs/loqa-bisi/internal/apiclient"
	"github.com/loqalabs/loqa-bisi/internal/capture"
	"github.com/loqalabs/loqa-bisi/internal/config"
	"github.com/loqalabs/loqa-bisi/internal/session"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		serverURL   string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (defaults and environment only when empty)")
	flag.StringVar(&serverURL, "server", "", "Proxy base URL, overrides client.server_url")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.Client.ServerURL = serverURL
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Telemetry.Level()}))

	recorder, err := capture.NewRecorder(cfg.Client.Capture)
	if err != nil {
		logger.Error("failed to init recorder", slog.String("error", err.Error()))
		os.Exit(1)
	}
	player, err := capture.NewPlayer(cfg.Client.Playback)
	if err != nil {
		logger.Error("failed to init player", slog.String("error", err.Error()))
		os.Exit(1)
	}

	timeout := time.Duration(cfg.Client.RequestTimeoutMS) * time.Millisecond
	client := apiclient.New(cfg.Client.ServerURL, timeout)
	display := session.DisplayFunc(func(status string) {
		fmt.Fprintln(os.Stdout, status)
	})
	sess := session.New(client, recorder, player, display, session.Options{
		RecordDuration: time.Duration(cfg.Client.RecordSeconds) * time.Second,
		CallTimeout:    timeout,
		AbortInFlight:  cfg.Client.AbortInFlight,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stdout, "Talking to %s. Press Enter to start or stop listening, Ctrl-C to quit.\n", cfg.Client.ServerURL)

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			sess.Stop()
			sess.Wait()
			return
		case _, ok := <-lines:
			if !ok {
				sess.Stop()
				sess.Wait()
				return
			}
			go sess.Toggle(ctx)
		}
	}
}

