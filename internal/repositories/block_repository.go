package repositories

import (
	"context"

	"github.com/trowebvideo/backend/internal/models"
)

// BlockRepository exposes data access for configured video blocks.
type BlockRepository interface {
	Save(ctx context.Context, block models.Block) (models.Block, error)
	Find(ctx context.Context, id string) (models.Block, error)
	Delete(ctx context.Context, id string) error
}

// WatchRepository exposes data access for per-viewer watch counts.
type WatchRepository interface {
	Increment(ctx context.Context, blockID, viewerID string) (int, error)
	Count(ctx context.Context, blockID, viewerID string) (int, error)
}
