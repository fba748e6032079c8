// Package storage persists indexed chunks (text, metadata, vector) in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/jourei/internal/models"
)

// SQLiteStorage stores indexed chunks. Rows are append-only: inserting a chunk
// whose id already exists adds a second row rather than replacing the first.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		row_id INTEGER PRIMARY KEY AUTOINCREMENT,
		chunk_id TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_chunk_id ON chunks(chunk_id);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertChunks writes a batch in one transaction: either every chunk is stored or none is.
func (s *SQLiteStorage) InsertChunks(ctx context.Context, chunks []models.IndexedChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, text, metadata, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, ch := range chunks {
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", ch.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.Text, string(meta), EncodeVector(ch.Vector), now); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// ForEachChunk calls fn for every stored chunk in insertion order.
func (s *SQLiteStorage) ForEachChunk(ctx context.Context, fn func(models.IndexedChunk) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, text, metadata, vector FROM chunks ORDER BY row_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ch   models.IndexedChunk
			meta string
			vec  []byte
		)
		if err := rows.Scan(&ch.ID, &ch.Text, &meta, &vec); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(meta), &ch.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata for %s: %w", ch.ID, err)
		}
		if ch.Vector, err = DecodeVector(vec); err != nil {
			return fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		if err := fn(ch); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetChunks returns every stored row for the given chunk id, oldest first.
func (s *SQLiteStorage) GetChunks(ctx context.Context, id string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, text, metadata FROM chunks WHERE chunk_id = ? ORDER BY row_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var (
			ch   models.Chunk
			meta string
		)
		if err := rows.Scan(&ch.ID, &ch.Text, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &ch.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", ch.ID, err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// CountChunks returns the number of stored rows, duplicates included.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// DeleteAll removes every chunk. Metadata entries are kept.
func (s *SQLiteStorage) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// SetMeta stores a key/value pair, replacing any previous value.
func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetMeta returns the value for key, or "" when it is not set.
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
