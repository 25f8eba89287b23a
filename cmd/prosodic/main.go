package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/prosodic-go/internal/api"
	"github.com/dgnsrekt/prosodic-go/internal/app"
	"github.com/dgnsrekt/prosodic-go/internal/config"
	"github.com/dgnsrekt/prosodic-go/internal/logging"
	"github.com/dgnsrekt/prosodic-go/internal/observe"
	"github.com/dgnsrekt/prosodic-go/internal/playback"
	"github.com/dgnsrekt/prosodic-go/internal/queue"
)

const version = "0.1.0"

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting prosodic", "version", version)

	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"tts_engine", cfg.TTSEngine,
		"player", cfg.Player,
		"default_dialect", cfg.DefaultDialect,
		"default_emotion", cfg.DefaultEmotion,
		"max_text_length", cfg.MaxTextLength,
		"queue_capacity", cfg.QueueCapacity,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var apiOpts api.Options
	var provider *observe.Provider
	if cfg.MetricsEnabled {
		provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			logger.Error("failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		apiOpts.Metrics = provider.Metrics
		apiOpts.MetricsHandler = provider.Handler()
	}

	engines, err := app.NewEngines(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize TTS", "error", err)
		os.Exit(1)
	}

	out, err := app.NewOutput(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize audio output", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	logger.Info("audio output ready", "backend", out.Backend)

	pipe, err := app.NewPipeline(cfg, engines, out, apiOpts.Metrics, logger)
	if err != nil {
		logger.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	speechQueue := queue.NewQueue(cfg.QueueCapacity, cfg.AutoLeaveIdle, logger)
	speechQueue.SetHandler(playback.NewHandler(pipe, logger).Handle)

	// Leave the voice channel while nothing is queued.
	speechQueue.SetIdleCallback(func() {
		if out.Voice == nil || !out.Voice.IsConnected() {
			return
		}
		logger.Info("queue idle, disconnecting from voice channel")
		if err := out.Voice.Disconnect(); err != nil {
			logger.Error("failed to disconnect from voice", "error", err)
		}
	})
	speechQueue.SetShutdownCallback(func() {
		if out.Voice != nil && out.Voice.IsConnected() {
			if err := out.Voice.Disconnect(); err != nil {
				logger.Error("failed to disconnect from voice during shutdown", "error", err)
			}
		}
	})

	speechQueue.Start()

	server := api.New(cfg, logger, speechQueue, pipe, apiOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		speechQueue.Stop()
		if err := pipe.Close(); err != nil {
			logger.Error("failed to close pipeline", "error", err)
		}
		if provider != nil {
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown telemetry", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("HTTP server error", "error", err)
		out.Close()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
