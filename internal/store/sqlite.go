// Package store persists economy flows and conversation memories in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vivekabot/internal/domain"

	_ "modernc.org/sqlite"
)

// memoryContentLimit caps persisted turn content, in runes.
const memoryContentLimit = 2000

// SQLiteStore implements domain.FlowStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS flows (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		type        TEXT NOT NULL,
		description TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'OPEN',
		author_id   TEXT NOT NULL,
		author_name TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_flows_match ON flows(type, status, author_id);

	CREATE TABLE IF NOT EXISTS memories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) InsertFlow(ctx context.Context, flow domain.FlowRecord) error {
	if flow.Status == "" {
		flow.Status = domain.FlowOpen
	}
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flows (type, description, status, author_id, author_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(flow.Type), flow.Description, flow.Status, flow.AuthorID, flow.AuthorName, flow.CreatedAt,
	)
	return err
}

// MatchOpposing returns up to limit OPEN flows of the opposite type to
// flowType, never authored by excludeAuthorID, newest first by creation id.
// Recency, not relevance: id DESC is the whole matching algorithm.
func (s *SQLiteStore) MatchOpposing(ctx context.Context, flowType domain.FlowType, excludeAuthorID string, limit int) ([]domain.FlowRecord, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, description, status, author_id, author_name, created_at
		 FROM flows
		 WHERE type = ? AND status = ? AND author_id != ?
		 ORDER BY id DESC LIMIT ?`,
		string(flowType.Opposite()), domain.FlowOpen, excludeAuthorID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []domain.FlowRecord
	for rows.Next() {
		var f domain.FlowRecord
		var typ string
		var name sql.NullString
		if err := rows.Scan(&f.ID, &typ, &f.Description, &f.Status, &f.AuthorID, &name, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Type = domain.FlowType(typ)
		f.AuthorName = name.String
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

func (s *SQLiteStore) AppendMemory(ctx context.Context, rec domain.MemoryRecord) error {
	content := rec.Content
	if runes := []rune(content); len(runes) > memoryContentLimit {
		content = string(runes[:memoryContentLimit])
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (user_id, role, content) VALUES (?, ?, ?)`,
		rec.UserID, rec.Role, content,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
