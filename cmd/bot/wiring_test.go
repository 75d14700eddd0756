package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourusername/llm-relay-bot/config"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Credentials = config.Credentials{
		BotToken: "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw",
		APIKey:   "sk-0123456789abcdef0123",
	}
	return &cfg
}

func TestNewBackend_SelectsProvider(t *testing.T) {
	cfg := testConfig()

	ai, closeAI, err := newBackend(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer closeAI()
	assert.Equal(t, config.ProviderOpenAI, ai.Provider())

	cfg.Upstream.Provider = config.ProviderGemini
	cfg.Upstream.Model = "gemini-2.0-flash"
	ai, closeAI, err = newBackend(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer closeAI()
	assert.Equal(t, config.ProviderGemini, ai.Provider())
}

func TestNewBackend_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.Provider = "claude"

	_, _, err := newBackend(context.Background(), cfg, zap.NewNop(), nil)

	assert.ErrorContains(t, err, "unsupported provider")
}

func TestNewJournal(t *testing.T) {
	cfg := testConfig()

	memory, err := newJournal(cfg)
	require.NoError(t, err)
	assert.NoError(t, memory.Close())

	cfg.JournalDBPath = filepath.Join(t.TempDir(), "data", "journal.db")
	sqlite, err := newJournal(cfg)
	require.NoError(t, err)
	assert.FileExists(t, cfg.JournalDBPath)
	assert.NoError(t, sqlite.Close())
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("loud", false)
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestNewMetrics_RegistersRelayCollectors(t *testing.T) {
	reg, m := newMetrics()
	m.ObserveTruncated()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["relay_replies_truncated_total"])
	assert.True(t, names["go_goroutines"])
}
