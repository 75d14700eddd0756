package upstream

import (
	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

// NewRequest builds the completion request for one prompt from the backend settings.
// Both backends translate it into their own wire shape.
func NewRequest(cfg config.Upstream, prompt string) entity.CompletionRequest {
	return entity.CompletionRequest{
		Prompt:          prompt,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxTokens,
	}
}
