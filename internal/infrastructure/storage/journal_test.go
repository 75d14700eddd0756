package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
)

func exchange(i int, base time.Time) entity.Exchange {
	return entity.Exchange{
		ID:           fmt.Sprintf("ex-%02d", i),
		UserID:       int64(100 + i),
		Username:     fmt.Sprintf("user%d", i),
		PromptLength: 10 * i,
		ReplyLength:  20 * i,
		Kind:         entity.KindNone,
		Attempts:     1,
		Latency:      time.Duration(i) * time.Millisecond,
		Timestamp:    base.Add(time.Duration(i) * time.Second),
	}
}

func journals(t *testing.T) map[string]repository.JournalRepository {
	t.Helper()
	sqliteRepo, err := NewSQLiteJournalRepository(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]repository.JournalRepository{
		"memory": NewMemoryJournalRepository(10),
		"sqlite": sqliteRepo,
	}
}

func TestJournal_RecentNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, repo := range journals(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 3; i++ {
				require.NoError(t, repo.Record(ctx, exchange(i, base)))
			}

			got, err := repo.Recent(ctx, 0)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "ex-03", got[0].ID)
			assert.Equal(t, "ex-01", got[2].ID)

			limited, err := repo.Recent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, limited, 2)
			assert.Equal(t, "ex-03", limited[0].ID)
			assert.Equal(t, "ex-02", limited[1].ID)
		})
	}
}

func TestJournal_FieldsRoundTrip(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	want := entity.Exchange{
		ID:           "abc",
		UserID:       7,
		Username:     "alice",
		PromptLength: 12,
		ReplyLength:  4100,
		Kind:         entity.KindUpstreamRateLimited,
		Attempts:     1,
		Truncated:    true,
		Latency:      1500 * time.Millisecond,
		Timestamp:    base,
	}

	for name, repo := range journals(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Record(context.Background(), want))

			got, err := repo.Recent(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, want.ID, got[0].ID)
			assert.Equal(t, want.UserID, got[0].UserID)
			assert.Equal(t, want.Username, got[0].Username)
			assert.Equal(t, want.ReplyLength, got[0].ReplyLength)
			assert.Equal(t, want.Kind, got[0].Kind)
			assert.True(t, got[0].Truncated)
			assert.Equal(t, want.Latency, got[0].Latency)
			assert.True(t, want.Timestamp.Equal(got[0].Timestamp))
		})
	}
}

func TestMemoryJournal_RingOverwritesOldest(t *testing.T) {
	base := time.Now()
	repo := NewMemoryJournalRepository(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Record(ctx, exchange(i, base)))
	}

	got, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ex-05", "ex-04", "ex-03"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.NoError(t, repo.Close())
}

func TestMemoryJournal_Empty(t *testing.T) {
	got, err := NewMemoryJournalRepository(0).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteJournal_RequiresPath(t *testing.T) {
	_, err := NewSQLiteJournalRepository("")
	assert.Error(t, err)
}
