package storage

import (
	"context"
	"sync"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
)

type memoryJournalRepository struct {
	mu      sync.RWMutex
	entries []entity.Exchange
	next    int
	full    bool
}

// NewMemoryJournalRepository in-memory journal yaratish; keeps the last maxSize exchanges
func NewMemoryJournalRepository(maxSize int) repository.JournalRepository {
	if maxSize < 1 {
		maxSize = 1
	}
	return &memoryJournalRepository{
		entries: make([]entity.Exchange, maxSize),
	}
}

// Record yozuvni saqlash
func (m *memoryJournalRepository) Record(ctx context.Context, exchange entity.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = exchange
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent so'nggi yozuvlarni olish, newest first
func (m *memoryJournalRepository) Recent(ctx context.Context, limit int) ([]entity.Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.entries)
	}
	if limit > 0 && limit < size {
		size = limit
	}

	out := make([]entity.Exchange, 0, size)
	for i := 1; i <= size; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

// Close is a no-op
func (m *memoryJournalRepository) Close() error {
	return nil
}
