package repository

import (
	"context"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

// AIRepository talks to the upstream completion service
type AIRepository interface {
	// Complete sends one prompt and returns the classified result.
	// Upstream failures are reported through the result, never as a Go error.
	Complete(ctx context.Context, prompt string) entity.CompletionResult

	// Provider names the backend for logs and metrics
	Provider() string
}
