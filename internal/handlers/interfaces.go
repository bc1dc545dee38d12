package handlers

import (
	"context"

	"github.com/trowebvideo/backend/internal/embed"
	"github.com/trowebvideo/backend/internal/models"
)

// BlockStore captures persistence for configured video blocks.
type BlockStore interface {
	Save(ctx context.Context, block models.Block) (models.Block, error)
	Find(ctx context.Context, id string) (models.Block, error)
	Delete(ctx context.Context, id string) error
}

// EmbedResolver turns a video reference into embed markup or a displayable failure.
type EmbedResolver interface {
	Resolve(ctx context.Context, ref embed.VideoReference) embed.Result
}

// WatchRecorder applies completion signals for a viewer.
type WatchRecorder interface {
	Record(ctx context.Context, blockID, viewerID string, watched bool) (models.WatchState, error)
}

// ProviderLister reports the supported video providers.
type ProviderLister interface {
	Providers() []embed.Provider
}
