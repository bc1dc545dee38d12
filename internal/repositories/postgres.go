package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trowebvideo/backend/internal/db"
	"github.com/trowebvideo/backend/internal/models"
)

const pgForeignKeyViolation = "23503"

// PostgresBlockRepository provides PostgreSQL-backed persistence for blocks.
type PostgresBlockRepository struct {
	pool db.Pool
}

// NewPostgresBlockRepository constructs a block repository backed by PostgreSQL.
func NewPostgresBlockRepository(pool db.Pool) *PostgresBlockRepository {
	return &PostgresBlockRepository{pool: pool}
}

// Save inserts the block or updates its video reference, keeping the
// original creation time.
func (r *PostgresBlockRepository) Save(ctx context.Context, block models.Block) (models.Block, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Block{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO blocks (id, source_url, max_width, max_height, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id)
        DO UPDATE SET source_url = EXCLUDED.source_url,
                      max_width = EXCLUDED.max_width,
                      max_height = EXCLUDED.max_height,
                      updated_at = EXCLUDED.updated_at
        RETURNING id, source_url, max_width, max_height, created_at, updated_at
    `, block.ID, block.SourceURL, block.MaxWidth, block.MaxHeight, block.CreatedAt.UTC(), block.UpdatedAt.UTC())

	saved, err := scanBlock(row)
	if err != nil {
		return models.Block{}, fmt.Errorf("upsert block: %w", err)
	}
	return saved, nil
}

// Find loads a block by id.
func (r *PostgresBlockRepository) Find(ctx context.Context, id string) (models.Block, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Block{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, source_url, max_width, max_height, created_at, updated_at
        FROM blocks
        WHERE id = $1
    `, id)

	block, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Block{}, ErrNotFound
		}
		return models.Block{}, fmt.Errorf("select block: %w", err)
	}
	return block, nil
}

// Delete removes a block; its watch states are removed by cascade.
func (r *PostgresBlockRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBlock(row pgx.Row) (models.Block, error) {
	var block models.Block
	if err := row.Scan(&block.ID, &block.SourceURL, &block.MaxWidth, &block.MaxHeight, &block.CreatedAt, &block.UpdatedAt); err != nil {
		return models.Block{}, err
	}
	block.CreatedAt = block.CreatedAt.UTC()
	block.UpdatedAt = block.UpdatedAt.UTC()
	return block, nil
}

// PostgresWatchRepository provides PostgreSQL-backed persistence for watch counts.
type PostgresWatchRepository struct {
	pool db.Pool
}

// NewPostgresWatchRepository constructs a watch repository backed by PostgreSQL.
func NewPostgresWatchRepository(pool db.Pool) *PostgresWatchRepository {
	return &PostgresWatchRepository{pool: pool}
}

// Increment atomically bumps the viewer's count for a block and returns it.
func (r *PostgresWatchRepository) Increment(ctx context.Context, blockID, viewerID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        INSERT INTO watch_states (block_id, viewer_id, watched_count, updated_at)
        VALUES ($1, $2, 1, NOW())
        ON CONFLICT (block_id, viewer_id)
        DO UPDATE SET watched_count = watch_states.watched_count + 1, updated_at = NOW()
        RETURNING watched_count
    `, blockID, viewerID).Scan(&count)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment watch state: %w", err)
	}
	return count, nil
}

// Count returns the viewer's count for a block, zero when none was recorded.
func (r *PostgresWatchRepository) Count(ctx context.Context, blockID, viewerID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        SELECT watched_count
        FROM watch_states
        WHERE block_id = $1 AND viewer_id = $2
    `, blockID, viewerID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select watch state: %w", err)
	}
	return count, nil
}
