package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/chatapi"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/gemini"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/storage"
	"github.com/yourusername/llm-relay-bot/internal/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

func newMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(reg)
}

// serveMetrics exposes reg on /metrics until ctx is done
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// newBackend picks the completion backend for LLM_PROVIDER.
// The returned close func is always safe to call.
func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (repository.AIRepository, func(), error) {
	switch cfg.Upstream.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewGeminiClient(ctx, cfg.Upstream, cfg.Credentials.APIKey, logger, m)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close Gemini client", zap.Error(err))
			}
		}, nil
	case config.ProviderOpenAI:
		return chatapi.NewChatClient(cfg.Upstream, cfg.Credentials.APIKey, logger, m), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Upstream.Provider)
	}
}

// newJournal uses SQLite when JOURNAL_DB_PATH is set, otherwise a bounded in-memory ring
func newJournal(cfg *config.Config) (repository.JournalRepository, error) {
	if cfg.JournalDBPath == "" {
		return storage.NewMemoryJournalRepository(cfg.JournalMemorySize), nil
	}
	journal, err := storage.NewSQLiteJournalRepository(cfg.JournalDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return journal, nil
}
