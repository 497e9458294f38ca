// Package app provides the main application struct for centralized dependency
// management and lifecycle control of the AgriPulse server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"agripulse/config"
	"agripulse/internal/cache"
	"agripulse/internal/fallback"
	"agripulse/internal/history"
	"agripulse/internal/providers/insight"
	"agripulse/internal/providers/market"
	"agripulse/internal/providers/weather"
	"agripulse/internal/refresh"
	"agripulse/internal/server"
	"agripulse/internal/snapshot"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	store     *cache.Store
	scheduler *refresh.Scheduler
	history   *history.Result
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	a := &App{config: cfg}

	// Snapshot cache with file persistence, warmed from the last run.
	var persister cache.Persister
	if cfg.Cache.FilePath != "" {
		persister = cache.NewFilePersister(cfg.Cache.FilePath)
	}
	a.store = cache.NewStore(persister)
	a.store.Restore()

	// Upstream clients. A missing Gemini key leaves the AI client nil and
	// producers fall back to deterministic synthetic insights.
	weatherClient := weather.New(cfg.Weather.APIKey)
	marketClient := market.New(cfg.Market.APIKey)

	var aiClient *insight.Client
	if cfg.Gemini.APIKey != "" {
		aiClient = insight.New(cfg.Gemini.APIKey)
		if cfg.Gemini.Model != "" {
			aiClient.SetModel(cfg.Gemini.Model)
		}
	}

	aiTimeout := time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second

	dashboardProducer := &snapshot.DashboardProducer{
		Weather:   weatherClient,
		Market:    marketClient,
		AITimeout: aiTimeout,
	}
	terminalProducer := &snapshot.TerminalProducer{
		Weather:   weatherClient,
		Market:    marketClient,
		Location:  cfg.Terminal.Location,
		AITimeout: aiTimeout,
	}
	if aiClient != nil {
		dashboardProducer.AI = aiClient
		terminalProducer.AI = aiClient
	}
	optionsProducer := &snapshot.OptionsProducer{
		Options: fallback.InternationalOptions(),
	}

	// Refresh history (noop when disabled)
	historyResult, err := history.New(ctx, cfg)
	if err != nil {
		closeErr := a.store.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize refresh history: %w (also: cache close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize refresh history: %w", err)
	}
	a.history = historyResult

	produceTimeout := time.Duration(cfg.Refresh.ProduceTimeoutSeconds) * time.Second

	a.scheduler = refresh.New(
		a.store,
		[]refresh.Domain{
			{Name: "dashboard", Topics: cfg.Terminal.DashboardLocations, Producer: snapshot.ProducerFunc(dashboardProducer.Produce)},
			{Name: "terminal", Topics: cfg.Terminal.Commodities, Producer: snapshot.ProducerFunc(terminalProducer.Produce)},
		},
		time.Duration(cfg.Refresh.IntervalSeconds)*time.Second,
		produceTimeout,
		historyResult.Logger,
	)

	a.logStartupInfo()

	handlerOpts := server.HandlerOptions{
		Store: a.store,
		Dashboard: server.CachedRoute{
			Domain:       "dashboard",
			DefaultTopic: defaultTopic(cfg.Terminal.DashboardLocations, "Indore"),
			Producer:     snapshot.ProducerFunc(dashboardProducer.Produce),
		},
		Terminal: server.CachedRoute{
			Domain:       "terminal",
			DefaultTopic: defaultTopic(cfg.Terminal.Commodities, "wheat"),
			Producer:     snapshot.ProducerFunc(terminalProducer.Produce),
		},
		Options:        optionsProducer,
		HistoryLog:     historyResult.Logger,
		HistoryStore:   historyResult.Store,
		ProduceTimeout: produceTimeout,
	}
	if aiClient != nil {
		// Assigned conditionally so a nil *insight.Client never hides
		// behind a non-nil interface value.
		handlerOpts.AI = aiClient
	}
	handler := server.NewHandler(handlerOpts)

	a.server = server.New(handler, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		HistoryEnabled:  cfg.History.Enabled,
	})

	return a, nil
}

// Start runs the initial refresh pass, launches the background refresh
// loops, and starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(ctx context.Context, addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}

	a.scheduler.Start(ctx)

	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context.
// 2. Refresh scheduler stop (waits for in-flight passes).
// 3. Cache store close (waits for pending snapshot persists).
// 4. Refresh history close (flushes pending entries).
//
// Shutdown is idempotent and safe for repeated calls; after the first call,
// subsequent calls are no-ops. It attempts every close step, aggregates
// failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Stop the refresh loops
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 3. Close the cache (waits for pending persists)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	// 4. Close refresh history (flushes pending entries)
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Error("history close error", "error", err)
			errs = append(errs, fmt.Errorf("history close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Weather.APIKey == "" {
		slog.Warn("WEATHER_API_KEY not set - serving synthetic weather data")
	}
	if cfg.Market.APIKey == "" {
		slog.Warn("DATA_GOV_API_KEY not set - serving synthetic market data")
	}
	if cfg.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set - AI insights, chat, and detection degraded")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.History.Enabled {
		slog.Info("refresh history enabled",
			"storage", cfg.Storage.Type,
			"buffer_size", cfg.History.BufferSize,
			"flush_interval", cfg.History.FlushInterval,
			"retention_days", cfg.History.RetentionDays,
		)
	} else {
		slog.Info("refresh history disabled")
	}

	slog.Info("refresh configured",
		"interval_seconds", cfg.Refresh.IntervalSeconds,
		"dashboard_locations", cfg.Terminal.DashboardLocations,
		"terminal_commodities", cfg.Terminal.Commodities,
	)
}

// defaultTopic returns the first configured topic, or a fallback.
func defaultTopic(topics []string, fallbackTopic string) string {
	if len(topics) > 0 {
		return topics[0]
	}
	return fallbackTopic
}
