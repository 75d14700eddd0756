package repository

import (
	"context"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

// JournalRepository stores one record per processed message
type JournalRepository interface {
	// Record appends an exchange
	Record(ctx context.Context, exchange entity.Exchange) error

	// Recent returns the newest exchanges first, at most limit (0 = all)
	Recent(ctx context.Context, limit int) ([]entity.Exchange, error)

	// Close releases underlying resources
	Close() error
}
