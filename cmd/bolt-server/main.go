package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bolt/internal/api"
	"bolt/internal/config"
	"bolt/internal/heartbeat"
	"bolt/internal/publisher"
	"bolt/internal/relay"
	"bolt/internal/watchdog"
)

const project = "bolt"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, err := watchdog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	sink, err := watchdog.Open(cfg.LogFile, level, project)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer sink.Close()

	// Setup structured logging: the watchdog file plus stdout
	stdoutOpts := &slog.HandlerOptions{Level: watchdog.ToSlog(level)}
	var stdout slog.Handler = slog.NewJSONHandler(os.Stdout, stdoutOpts)
	if cfg.LogFormat == "text" {
		stdout = slog.NewTextHandler(os.Stdout, stdoutOpts)
	}
	logger := slog.New(watchdog.Fanout(watchdog.NewHandler(sink), stdout))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []publisher.Option{
		publisher.WithLogger(logger),
		publisher.WithSendBuffer(cfg.SendBuffer),
	}

	if cfg.RelayEnabled() {
		mirror, err := relay.Connect(ctx, relay.Config{
			URL:           cfg.RedisURL,
			ChannelPrefix: cfg.RedisChannelPrefix,
			RetryAttempts: cfg.RedisRetryAttempts,
			RetryInterval: cfg.RedisRetryInterval,
		}, logger)
		if err != nil {
			logger.Error("relay_unavailable", "error", err.Error())
			os.Exit(1)
		}
		defer mirror.Close()
		opts = append(opts, publisher.WithMirror(mirror))
	}

	server, err := publisher.Open(cfg.Host, cfg.Port, opts...)
	if err != nil {
		logger.Error("publisher_bind_failed", "error", err.Error())
		os.Exit(1)
	}

	gen := heartbeat.New(server,
		heartbeat.WithInterval(cfg.HeartbeatInterval),
		heartbeat.WithTopic(cfg.HeartbeatTopic),
		heartbeat.WithLogger(logger),
	)
	beatDone := make(chan struct{})
	go func() {
		defer close(beatDone)
		gen.Run(ctx)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(server, cfg.HeartbeatTopic, logger)
	router := api.NewRouter(handler, rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst))
	httpServer := &http.Server{
		Addr:              cfg.APIAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("api_listening", "addr", cfg.APIAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("bolt_started",
		"publish_addr", server.Addr(),
		"api_addr", cfg.APIAddr(),
		"heartbeat_interval", cfg.HeartbeatInterval.String(),
		"relay_enabled", cfg.RelayEnabled(),
	)

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("api_server_error", "error", err.Error())
		exitCode = 1
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err.Error())
	}
	<-beatDone
	if err := server.Close(); err != nil {
		logger.Warn("publisher_close_failed", "error", err.Error())
	}
	logger.Info("server_stopped_gracefully",
		"heartbeats_sent", gen.Sent(),
		"heartbeat_failures", gen.Failures(),
	)

	if exitCode != 0 {
		sink.Close()
		os.Exit(exitCode)
	}
}
