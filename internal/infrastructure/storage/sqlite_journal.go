package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
)

type sqliteJournalRepository struct {
	db *sql.DB
}

// NewSQLiteJournalRepository SQLite asosidagi journal
func NewSQLiteJournalRepository(dbPath string) (repository.JournalRepository, error) {
	if dbPath == "" {
		return nil, errors.New("db path bo'sh bo'lmasligi kerak")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("db papkasini yaratib bo'lmadi: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite ochilmadi: %w", err)
	}

	if err := createJournalSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteJournalRepository{db: db}, nil
}

func createJournalSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	username TEXT,
	prompt_len INTEGER NOT NULL,
	reply_len INTEGER NOT NULL,
	kind TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	truncated INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	ts TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_ts ON exchanges (ts);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("schema yaratib bo'lmadi: %w", err)
	}
	return nil
}

// Record yozuvni saqlash
func (s *sqliteJournalRepository) Record(ctx context.Context, e entity.Exchange) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO exchanges
(id, user_id, username, prompt_len, reply_len, kind, attempts, truncated, latency_ms, ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Username, e.PromptLength, e.ReplyLength, e.Kind.String(),
		e.Attempts, e.Truncated, e.Latency.Milliseconds(), e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// Recent so'nggi yozuvlarni olish, newest first
func (s *sqliteJournalRepository) Recent(ctx context.Context, limit int) ([]entity.Exchange, error) {
	query := `SELECT id, user_id, username, prompt_len, reply_len, kind, attempts, truncated, latency_ms, ts
FROM exchanges ORDER BY ts DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Exchange
	for rows.Next() {
		var (
			e         entity.Exchange
			kind      string
			latencyMS int64
			ts        time.Time
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.PromptLength, &e.ReplyLength,
			&kind, &e.Attempts, &e.Truncated, &latencyMS, &ts); err != nil {
			return nil, err
		}
		e.Kind = entity.ParseErrorKind(kind)
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		e.Timestamp = ts
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close ulanishni yopish
func (s *sqliteJournalRepository) Close() error {
	return s.db.Close()
}
