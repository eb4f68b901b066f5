package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ab-esl-ai/caption-gateway/internal/api"
	"github.com/ab-esl-ai/caption-gateway/internal/config"
	"github.com/ab-esl-ai/caption-gateway/internal/observability"
	"github.com/ab-esl-ai/caption-gateway/internal/resilience"
	"github.com/ab-esl-ai/caption-gateway/internal/session"
	"github.com/ab-esl-ai/caption-gateway/internal/store"
	"github.com/ab-esl-ai/caption-gateway/internal/ui"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns stdout; the logger writes to stderr
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("backend_url", cfg.BackendURL).
		Str("lang", cfg.SourceLanguage).
		Str("l1", cfg.TargetL1).
		Int("simplify", cfg.SimplifyStrength).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Caption Gateway starting")

	// Local transcript history, opt-in
	var db *store.Store
	if cfg.TranscriptDBPath != "" {
		db, err = store.Open(cfg.TranscriptDBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open transcript database")
		}
		defer db.Close()

		if sessions, err := db.Sessions(); err == nil {
			logger.Info().Int("saved_sessions", len(sessions)).Msg("Transcript history loaded")
		}
	}

	// REST client, used here for the readiness probe; the UI layers that
	// need scoring or leveling share the same instance.
	apiClient, err := api.NewClient(api.Config{
		BaseURL: cfg.BackendURL,
		Token:   cfg.SessionToken,
		Timeout: cfg.HTTPTimeoutDuration(),
		Retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		Breaker: resilience.NewCircuitBreaker(
			"backend-api",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	controller := session.NewController(cfg, db, logger)

	// Ops endpoints: liveness, readiness, metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	backendCheck := func(ctx context.Context) (bool, error) {
		// A cheap GET against a known route; 404 still proves reachability
		_, err := apiClient.TransferPatterns(ctx, "es")
		if err != nil {
			var apiErr *api.APIError
			if errors.As(err, &apiErr) {
				return true, nil
			}
			return false, err
		}
		return true, nil
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"backend": backendCheck,
	}))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Ops server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Ops server failed")
		}
	}()

	// The TUI runs in the foreground until the user quits
	program := tea.NewProgram(ui.New(controller), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logger.Error().Err(err).Msg("UI exited with error")
	}

	controller.Stop()

	logger.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Ops server shutdown failed")
	}

	logger.Info().Msg("Caption Gateway stopped")
}
