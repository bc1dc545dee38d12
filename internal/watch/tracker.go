package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trowebvideo/backend/internal/models"
)

var (
	// ErrStoreUnavailable indicates the tracker has no backing store.
	ErrStoreUnavailable = errors.New("watch store unavailable")
	// ErrMissingViewer indicates the completion signal carried no viewer identity.
	ErrMissingViewer = errors.New("viewer id is required")
	// ErrMissingBlock indicates the completion signal carried no block identity.
	ErrMissingBlock = errors.New("block id is required")
)

// Store persists per-viewer watch counts.
type Store interface {
	// Increment atomically adds one to the count and returns the new value.
	Increment(ctx context.Context, blockID, viewerID string) (int, error)
	// Count returns the current count, zero when nothing was recorded.
	Count(ctx context.Context, blockID, viewerID string) (int, error)
}

// Tracker applies completion signals to a Store.
type Tracker struct {
	store Store
}

// NewTracker constructs a Tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Record handles a completion signal. A watched signal increments the count
// by exactly one; any other signal leaves it unchanged. The resulting state
// is returned either way.
func (t *Tracker) Record(ctx context.Context, blockID, viewerID string, watched bool) (models.WatchState, error) {
	if t == nil || t.store == nil {
		return models.WatchState{}, ErrStoreUnavailable
	}

	blockID = strings.TrimSpace(blockID)
	viewerID = strings.TrimSpace(viewerID)
	if blockID == "" {
		return models.WatchState{}, ErrMissingBlock
	}
	if viewerID == "" {
		return models.WatchState{}, ErrMissingViewer
	}

	var (
		count int
		err   error
	)
	if watched {
		count, err = t.store.Increment(ctx, blockID, viewerID)
		if err != nil {
			return models.WatchState{}, fmt.Errorf("increment watch count: %w", err)
		}
	} else {
		count, err = t.store.Count(ctx, blockID, viewerID)
		if err != nil {
			return models.WatchState{}, fmt.Errorf("read watch count: %w", err)
		}
	}

	return models.WatchState{BlockID: blockID, ViewerID: viewerID, WatchedCount: count}, nil
}
