package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/infrastructure/upstream"
	"github.com/yourusername/llm-relay-bot/internal/metrics"
)

const providerName = config.ProviderGemini

// generator is the part of *genai.GenerativeModel the client uses
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client Gemini orqali javob olish
type Client struct {
	client   *genai.Client
	model    generator
	settings config.Upstream
	caller   *upstream.Caller
}

// NewGeminiClient yangi Gemini AI client yaratish
func NewGeminiClient(ctx context.Context, cfg config.Upstream, apiKey string, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	configure(model, upstream.NewRequest(cfg, ""))

	c := newClient(model, cfg, logger, m)
	c.client = client
	return c, nil
}

func newClient(model generator, cfg config.Upstream, logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		model:    model,
		settings: cfg,
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
func (g *Client) Provider() string {
	return providerName
}

// Complete bitta prompt uchun javob yaratish
func (g *Client) Complete(ctx context.Context, prompt string) entity.CompletionResult {
	req := upstream.NewRequest(g.settings, prompt)
	return g.caller.Do(ctx, func(ctx context.Context) upstream.Outcome {
		resp, err := g.model.GenerateContent(ctx, genai.Text(req.Prompt))
		if err != nil {
			return classify(err)
		}
		text := extractText(resp)
		if strings.TrimSpace(text) == "" {
			return upstream.Malformed(errors.New("no candidate text"))
		}
		return upstream.Success(text)
	})
}

// configure applies the sampling settings of req to the model. The SDK keeps
// them on the model, so only the prompt varies per call.
func configure(model *genai.GenerativeModel, req entity.CompletionRequest) {
	model.SetTemperature(float32(req.Temperature))
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
}

// Close client ni yopish
func (g *Client) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// classify maps SDK errors onto the same outcomes as HTTP statuses.
func classify(err error) upstream.Outcome {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return upstream.Terminal(entity.KindUpstreamError, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return upstream.FromStatus(apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return upstream.Transport(err)
	}

	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return upstream.Terminal(entity.KindAuthError, err)
	case codes.ResourceExhausted:
		return upstream.Terminal(entity.KindUpstreamRateLimited, err)
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
		return upstream.Retryable(entity.KindUpstreamError, err)
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange, codes.Unimplemented:
		return upstream.Terminal(entity.KindUpstreamError, err)
	default:
		return upstream.Transport(err)
	}
}

// extractText javobdan textni ajratib olish
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
		// first candidate with content only
		if result.Len() > 0 {
			break
		}
	}
	return result.String()
}
