package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/delivery/telegram"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/ratelimit"
	"github.com/yourusername/llm-relay-bot/internal/usecase"
)

var (
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Telegram bot that relays messages to an LLM completion API",
	Long: `bot forwards every text message it receives to a chat completion API
and sends the reply back, with a per-user cooldown, input and output size
limits, and bounded retries against the upstream service.

Secrets and limits are read from the environment (or --env-file).`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: .env if present)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg, m := newMetrics()

	limiter := ratelimit.New(cfg.Limits.Cooldown, cfg.Limits.Retention, ratelimit.WithLogger(logger.Named("ratelimit")))
	m.TrackUsers(limiter.Len)

	ai, closeAI, err := newBackend(ctx, cfg, logger.Named("upstream"), m)
	if err != nil {
		return err
	}
	defer closeAI()

	journal, err := newJournal(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Warn("failed to close journal", zap.Error(err))
		}
	}()

	relay := usecase.NewRelayUseCase(ai, limiter, journal, usecase.RelayConfig{
		MaxInputLength:    cfg.Limits.MaxInputLength,
		MaxResponseLength: cfg.Limits.MaxResponseLength,
	}, logger.Named("relay"), m)

	handler, err := telegram.NewBotHandler(cfg.Credentials.BotToken, relay, cfg.Limits, logger.Named("telegram"))
	if err != nil {
		return err
	}

	logger.Info("starting",
		zap.String("bot", handler.GetBotUsername()),
		zap.String("provider", ai.Provider()),
		zap.String("model", cfg.Upstream.Model),
		zap.Duration("cooldown", cfg.Limits.Cooldown),
		zap.Bool("journal_sqlite", cfg.JournalDBPath != ""),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limiter.Run(gctx, cfg.Limits.SweepInterval)
		return nil
	})

	if cfg.MetricsAddr != "" {
		serveMetrics(gctx, g, cfg.MetricsAddr, reg, logger.Named("metrics"))
	}

	g.Go(func() error {
		// the bot loop owns the process lifetime
		defer cancel()
		err := handler.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot stopped with error", zap.Error(err))
		return err
	}
	logger.Info("bot stopped")
	return nil
}

// newLogger builds the production zap logger at the configured level
func newLogger(level string, debug bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
