// Package main is the entry point for the AirWatch API server.
//
// It loads configuration, opens the local state store and the pollution
// dataset, wires the forecaster, alerting channels and the user session, and
// serves the HTTP API until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"airwatch/internal/api/handlers"
	"airwatch/internal/config"
	"airwatch/internal/core"
	"airwatch/internal/dataset"
	"airwatch/internal/external"
	"airwatch/internal/forecast"
	notify "airwatch/internal/notifications/core"
	"airwatch/internal/notifications/webhook"
	"airwatch/internal/session"
	"airwatch/internal/store"
	"airwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewFileSecretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	logger.Info("airwatch starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"addr", cfg.Server.ListenAddr,
		"forecast_backend", cfg.Forecast.Backend,
		"webhook", cfg.Alert.WebhookEnabled(),
	)

	srv, err := buildServer(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	return runHTTPServer(srv, cfg, logger)
}

// buildServer assembles every dependency and mounts the routes. Resources
// that need closing are registered on the server in open order.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	meter := otel.Meter(types.MeterName)

	ds, err := dataset.Load(cfg.Data.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	logger.Info("dataset loaded",
		"path", cfg.Data.DatasetPath,
		"locations", len(ds.Locations),
		"steps", ds.Len(),
	)

	st, err := store.OpenBolt(cfg.Data.StorePath, meter)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Closers = append(srv.Closers, st)

	forecaster, err := newForecaster(cfg, logger)
	if err != nil {
		_ = srv.Shutdown(ctx)
		return nil, err
	}
	dispatcher := forecast.NewDispatcher(forecaster, logger)

	alerter, err := newAlerter(cfg, st, logger)
	if err != nil {
		dispatcher.Close()
		_ = srv.Shutdown(ctx)
		return nil, err
	}

	sess, err := session.New(ctx, ds, st, dispatcher, alerter, logger)
	if err != nil {
		dispatcher.Close()
		_ = srv.Shutdown(ctx)
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	srv.Closers = append(srv.Closers, closerFunc(func() error {
		sess.Close()
		return nil
	}))

	apiMetrics, err := core.NewOTelMetrics(meter)
	if err != nil {
		_ = srv.Shutdown(ctx)
		return nil, fmt.Errorf("creating api metrics: %w", err)
	}
	srv.Metrics = apiMetrics
	srv.RateLimitStore = core.NewTokenBucketStore(nil)
	srv.HealthProbes = []core.HealthProbe{st, ds}

	sessionHandler := handlers.NewSessionHandler(sess, srv.Validator, logger)
	locationHandler := handlers.NewLocationHandler(ds, logger)
	evaluateHandler := handlers.NewEvaluateHandler(forecaster, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		sessionHandler.RegisterRoutes,
		locationHandler.RegisterRoutes,
		evaluateHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

func newForecaster(cfg *config.Config, logger *slog.Logger) (*forecast.Forecaster, error) {
	strategy, err := forecast.NewStrategy(cfg.Forecast.Backend)
	if err != nil {
		return nil, fmt.Errorf("selecting forecast backend: %w", err)
	}
	opts := []forecast.Option{forecast.WithLogger(logger)}
	if cfg.Forecast.Headless {
		opts = append(opts, forecast.WithHeadless())
	}
	return forecast.NewForecaster(strategy, opts...), nil
}

// newAlerter always delivers to the log channel and adds the webhook when
// a URL is configured.
func newAlerter(cfg *config.Config, st store.Store, logger *slog.Logger) (*notify.Alerter, error) {
	alertLogger := types.NewSlogLogger(logger.With("component", "alerter"))
	channels := []notify.Channel{notify.NewLogChannel(alertLogger)}

	if cfg.Alert.WebhookEnabled() {
		client := external.NewClient(
			&http.Client{Timeout: cfg.Alert.WebhookTimeout},
			"webhook",
			external.WithUserAgent(cfg.Alert.UserAgent),
		)
		ch, err := webhook.NewChannel(webhook.Config{
			URL:      cfg.Alert.WebhookURL,
			Token:    cfg.Alert.WebhookToken,
			Secret:   cfg.Alert.WebhookSecret,
			Platform: cfg.Alert.WebhookPlatform,
		}, client, types.RealClock{}, alertLogger)
		if err != nil {
			return nil, fmt.Errorf("creating webhook channel: %w", err)
		}
		channels = append(channels, ch)
	}

	metrics, err := notify.NewOTelNotificationMetrics(otel.Meter(types.MeterName))
	if err != nil {
		return nil, fmt.Errorf("creating notification metrics: %w", err)
	}
	return notify.NewAlerter(notify.NewGate(nil), st, channels, metrics, alertLogger), nil
}

func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := cfg.Server.ListenAddr

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	})
	return slog.New(handler)
}

// closerFunc adapts a func to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
