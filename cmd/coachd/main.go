// Package main is the entry point for the coach conversation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberfit/coach"
	cacheredis "github.com/emberfit/coach/caches/redis"
	"github.com/emberfit/coach/internal/config"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Bootstrap logger; replaced once config is loaded.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfgManager, err := config.NewManager(*configPath, logger)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg := cfgManager.Get()

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting coach service", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	client, err := buildClient(cfg, logger)
	if err != nil {
		logger.Error("failed to build client", "error", err)
		os.Exit(1)
	}

	// Rule enable/disable flags follow config reloads without a restart.
	cfgManager.OnChange(func(newCfg *config.Config) {
		client.ApplyRuleFlags(newCfg.RuleFlags())
		logger.Info("applied notification rule flags", "rules", len(newCfg.Notifications.Rules))
	})

	handler := newHandler(client, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", handler.healthCheck)
	mux.HandleFunc("GET /health/ready", handler.healthCheck)

	mux.HandleFunc("POST /v1/chat", handler.chat)
	mux.HandleFunc("POST /v1/chat/stream", handler.chatStream)

	mux.HandleFunc("GET /v1/sessions/{id}", handler.getSession)
	mux.HandleFunc("PUT /v1/sessions/{id}/mood", handler.updateMood)
	mux.HandleFunc("PUT /v1/sessions/{id}/goals", handler.updateGoals)
	mux.HandleFunc("POST /v1/sessions/{id}/factors", handler.addFactor)
	mux.HandleFunc("DELETE /v1/sessions/{id}", handler.endSession)

	mux.HandleFunc("POST /v1/users/{id}/triggers/evaluate", handler.evaluateTriggers)
	mux.HandleFunc("GET /v1/users/{id}/insights", handler.insights)

	mux.HandleFunc("GET /v1/cache/stats", handler.cacheStats)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := client.Close(); err != nil {
		logger.Error("client shutdown error", "error", err)
	}
	cfgManager.Close()
	logger.Info("server stopped")
}

// buildClient assembles a coach client from file configuration.
func buildClient(cfg *config.Config, logger *slog.Logger) (*coach.Client, error) {
	opts := []coach.Option{
		coach.WithProvider(coach.ProviderConfig{
			Name:    cfg.Provider.Name,
			Type:    cfg.Provider.Type,
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			Timeout: cfg.Provider.Timeout,
			Headers: cfg.Provider.Headers,
		}),
		coach.WithSessionLimits(cfg.Session.MaxHistory, cfg.Session.Expiry),
		coach.WithSessionSweepInterval(cfg.Session.SweepInterval),
		coach.WithCache(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		coach.WithCacheMinConfidence(cfg.Cache.MinConfidence),
		coach.WithRetry(cfg.Orchestrator.MaxRetries, time.Second),
		coach.WithTimeout(cfg.Orchestrator.RequestTimeout),
		coach.WithTriggerRules(cfg.Notifications.Rules...),
		coach.WithNotificationCap(cfg.Notifications.DailyCap),
		coach.WithDoNotDisturb(cfg.Notifications.DND...),
		coach.WithLogger(logger),
	}

	if cfg.Cache.RedisEnabled {
		store, err := cacheredis.New(cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		opts = append(opts, coach.WithCacheStore(store))
		logger.Info("redis cache tier enabled", "addr", cfg.Cache.Redis.Addr)
	}

	return coach.New(opts...)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}
