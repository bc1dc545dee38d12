package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/trowebvideo/backend/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blocks (
    id TEXT PRIMARY KEY,
    source_url TEXT NOT NULL DEFAULT '',
    max_width INTEGER NOT NULL DEFAULT 800,
    max_height INTEGER NOT NULL DEFAULT 450,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS watch_states (
    block_id TEXT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
    viewer_id TEXT NOT NULL,
    watched_count INTEGER NOT NULL DEFAULT 0 CHECK (watched_count >= 0),
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (block_id, viewer_id)
);`

// EnsureSQLiteSchema creates the block and watch tables when missing.
func EnsureSQLiteSchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

// SQLiteBlockRepository provides SQLite-backed persistence for blocks.
type SQLiteBlockRepository struct {
	db *sql.DB
}

// NewSQLiteBlockRepository constructs a block repository backed by SQLite.
func NewSQLiteBlockRepository(conn *sql.DB) *SQLiteBlockRepository {
	return &SQLiteBlockRepository{db: conn}
}

// Save inserts the block or updates its video reference, keeping the
// original creation time.
func (r *SQLiteBlockRepository) Save(ctx context.Context, block models.Block) (models.Block, error) {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO blocks (id, source_url, max_width, max_height, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET source_url = excluded.source_url,
                      max_width = excluded.max_width,
                      max_height = excluded.max_height,
                      updated_at = excluded.updated_at
    `, block.ID, block.SourceURL, block.MaxWidth, block.MaxHeight, block.CreatedAt.UTC(), block.UpdatedAt.UTC())
	if err != nil {
		return models.Block{}, fmt.Errorf("upsert block: %w", err)
	}
	return r.Find(ctx, block.ID)
}

// Find loads a block by id.
func (r *SQLiteBlockRepository) Find(ctx context.Context, id string) (models.Block, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, source_url, max_width, max_height, created_at, updated_at
        FROM blocks
        WHERE id = ?
    `, id)

	var block models.Block
	var createdAt, updatedAt time.Time
	if err := row.Scan(&block.ID, &block.SourceURL, &block.MaxWidth, &block.MaxHeight, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Block{}, ErrNotFound
		}
		return models.Block{}, fmt.Errorf("select block: %w", err)
	}
	block.CreatedAt = createdAt.UTC()
	block.UpdatedAt = updatedAt.UTC()
	return block, nil
}

// Delete removes a block; its watch states are removed by cascade.
func (r *SQLiteBlockRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete block rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLiteWatchRepository provides SQLite-backed persistence for watch counts.
type SQLiteWatchRepository struct {
	db *sql.DB
}

// NewSQLiteWatchRepository constructs a watch repository backed by SQLite.
func NewSQLiteWatchRepository(conn *sql.DB) *SQLiteWatchRepository {
	return &SQLiteWatchRepository{db: conn}
}

// Increment atomically bumps the viewer's count for a block and returns it.
func (r *SQLiteWatchRepository) Increment(ctx context.Context, blockID, viewerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO watch_states (block_id, viewer_id, watched_count, updated_at)
        VALUES (?, ?, 1, ?)
        ON CONFLICT (block_id, viewer_id)
        DO UPDATE SET watched_count = watch_states.watched_count + 1, updated_at = excluded.updated_at
        RETURNING watched_count
    `, blockID, viewerID, time.Now().UTC()).Scan(&count)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment watch state: %w", err)
	}
	return count, nil
}

// Count returns the viewer's count for a block, zero when none was recorded.
func (r *SQLiteWatchRepository) Count(ctx context.Context, blockID, viewerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
        SELECT watched_count
        FROM watch_states
        WHERE block_id = ? AND viewer_id = ?
    `, blockID, viewerID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select watch state: %w", err)
	}
	return count, nil
}
