// Package chatapi implements AIRepository against an OpenAI-compatible
// chat completions endpoint (DeepSeek by default).
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/upstream"
	"github.com/yourusername/llm-relay-bot/internal/metrics"
)

const (
	providerName    = config.ProviderOpenAI
	maxErrorSnippet = 512
	maxBodySize     = 4 << 20
)

type chatClient struct {
	apiURL     string
	apiKey     string
	settings   config.Upstream
	httpClient *http.Client
	caller     *upstream.Caller
}

// NewChatClient yangi chat completions client yaratish
func NewChatClient(cfg config.Upstream, apiKey string, logger *zap.Logger, m *metrics.Metrics) repository.AIRepository {
	return newChatClient(cfg, apiKey, &http.Client{Timeout: cfg.AttemptTimeout}, logger, m)
}

func newChatClient(cfg config.Upstream, apiKey string, hc *http.Client, logger *zap.Logger, m *metrics.Metrics) *chatClient {
	return &chatClient{
		apiURL:     cfg.APIURL,
		apiKey:     apiKey,
		settings:   cfg,
		httpClient: hc,
		caller: upstream.NewCaller(upstream.Config{
			Provider:       providerName,
			MaxAttempts:    cfg.MaxAttempts,
			BaseDelay:      cfg.RetryBaseDelay,
			AttemptTimeout: cfg.AttemptTimeout,
			MaxConcurrency: cfg.MaxConcurrency,
			MinInterval:    cfg.MinInterval,
		}, logger, m),
	}
}

// Provider returns the backend name
func (c *chatClient) Provider() string {
	return providerName
}

// Complete bitta prompt uchun javob olish
func (c *chatClient) Complete(ctx context.Context, prompt string) entity.CompletionResult {
	body, err := json.Marshal(newChatRequest(upstream.NewRequest(c.settings, prompt)))
	if err != nil {
		return entity.Failed(entity.KindUnknown, fmt.Sprintf("failed to marshal request: %v", err), 0)
	}

	return c.caller.Do(ctx, func(ctx context.Context) upstream.Outcome {
		return c.attempt(ctx, body)
	})
}

// attempt performs one POST; the body is re-read from the byte slice each time.
func (c *chatClient) attempt(ctx context.Context, body []byte) upstream.Outcome {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return upstream.Terminal(entity.KindUnknown, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return upstream.Transport(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstream.FromStatus(resp.StatusCode, errorSnippet(resp.Body))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return upstream.Transport(fmt.Errorf("failed to read response: %w", err))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return upstream.Malformed(fmt.Errorf("failed to parse response: %w", err))
	}
	text, err := parsed.text()
	if err != nil {
		return upstream.Malformed(err)
	}
	return upstream.Success(text)
}

// errorSnippet extracts the provider's error message, or a bounded raw prefix.
func errorSnippet(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorSnippet))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
