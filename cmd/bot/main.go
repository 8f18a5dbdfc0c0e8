package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/chatlog-relay/internal/api"
	"github.com/Priya8975/chatlog-relay/internal/bot"
	"github.com/Priya8975/chatlog-relay/internal/command"
	"github.com/Priya8975/chatlog-relay/internal/config"
	"github.com/Priya8975/chatlog-relay/internal/engine"
	"github.com/Priya8975/chatlog-relay/internal/metrics"
	"github.com/Priya8975/chatlog-relay/internal/routing"
	"github.com/Priya8975/chatlog-relay/internal/webhook"
	ws "github.com/Priya8975/chatlog-relay/internal/websocket"
	"github.com/Priya8975/chatlog-relay/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	exporter, err := metrics.NewExporter()
	if err != nil {
		logger.Error("failed to create metrics exporter", "error", err)
		os.Exit(1)
	}

	routes := routing.NewTable()
	parser := webhook.NewParser(cfg.WebhookAllowedHosts)
	client := webhook.NewClient(parser, cfg.DeliveryTimeout)

	var pool *worker.Pool
	recorder, err := metrics.NewRecorder(exporter.Meter(), metrics.Gauges{
		Routes:     routes.Len,
		QueueDepth: func() int { return pool.Pending() },
	})
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	// Live relay feed
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	// Delivery workers
	deliverer := worker.NewDeliverer(client, webhook.NewCardBuilder(cfg.RandomSeed), logger, worker.DelivererOptions{
		Redact:  parser.Redact,
		Metrics: recorder,
		Hub:     hub,
	})
	pool = worker.NewPool(cfg.NumWorkers, cfg.QueueSize, deliverer, logger)
	pool.Start(ctx)

	// Discord session
	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}

	relay := engine.NewRelay(routes, session.State, parser, pool, logger, engine.Options{
		Metrics: recorder,
		Hub:     hub,
	})
	setlog := command.NewSetLog(routes, client, parser, logger, command.SetLogOptions{
		Metrics: recorder,
		Hub:     hub,
	})
	router := command.NewRouter(cfg.CommandPrefix, logger)

	handlers := bot.NewHandlers(ctx, relay, router, []bot.SlashCommand{setlog}, bot.Config{
		GuildID:    cfg.GuildID,
		StatusText: cfg.StatusText,
		Banner:     cfg.Banner,
		BannerOut:  os.Stdout,
	}, logger)
	handlers.Register(session)

	// Ops API
	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			Routes:  routes,
			Redact:  parser.Redact,
			Queue:   pool,
			Feed:    hub,
			Metrics: exporter.Handler(),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	if err := session.Open(); err != nil {
		logger.Error("failed to connect to discord", "error", err)
		os.Exit(1)
	}
	logger.Info("discord session opened", "workers", cfg.NumWorkers)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	failed := false
	if err := session.Close(); err != nil {
		logger.Error("failed to close discord session", "error", err)
		failed = true
	}
	handlers.Wait()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		failed = true
	}

	// Queued deliveries finish before the context is cancelled
	pool.Stop()
	cancel()

	if err := exporter.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown metrics", "error", err)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("bot stopped")
}
