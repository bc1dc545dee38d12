package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/trowebvideo/backend/internal/embed"
	"github.com/trowebvideo/backend/internal/logging"
	"github.com/trowebvideo/backend/internal/models"
	"github.com/trowebvideo/backend/internal/repositories"
	"github.com/trowebvideo/backend/internal/watch"
)

// ViewerHeader carries the identity of the viewer sending a completion signal.
const ViewerHeader = "X-Viewer-ID"

// BlockHandler serves configuration, student view and completion endpoints
// for video blocks.
type BlockHandler struct {
	Blocks   BlockStore
	Resolver EmbedResolver
	Watches  WatchRecorder
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Handle dispatches /api/v1/blocks/{id} by method.
func (h BlockHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Get(w, r)
	case http.MethodPut:
		h.Configure(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Get handles GET /api/v1/blocks/{id}.
func (h BlockHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Blocks == nil {
		logger.Error("block store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "block services unavailable")
		return
	}

	block, ok := h.findBlock(w, r)
	if !ok {
		return
	}

	respondJSON(ctx, w, http.StatusOK, blockResponse{Block: block})
}

// Configure handles PUT /api/v1/blocks/{id}, the authoring form save.
func (h BlockHandler) Configure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Blocks == nil {
		logger.Error("block store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "block services unavailable")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "block id is required")
		return
	}

	var req videoReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid block payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	ref, err := req.reference()
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	block, err := h.Blocks.Save(ctx, models.Block{
		ID:        id,
		SourceURL: ref.SourceURL,
		MaxWidth:  ref.MaxWidth,
		MaxHeight: ref.MaxHeight,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		logger.Error("failed to save block", "blockId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save block")
		return
	}

	logger.Info("block configured", "blockId", id, "host", embed.Hostname(block.SourceURL))
	respondJSON(ctx, w, http.StatusOK, blockResponse{Block: block})
}

// Delete handles DELETE /api/v1/blocks/{id}.
func (h BlockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Blocks == nil {
		logger.Error("block store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "block services unavailable")
		return
	}

	id := r.PathValue("id")
	if err := h.Blocks.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "block not found")
			return
		}
		logger.Error("failed to delete block", "blockId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete block")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// View handles GET /api/v1/blocks/{id}/view and renders the student view
// fragment. Provider failures are rendered as a message, not an HTTP error.
func (h BlockHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Blocks == nil || h.Resolver == nil {
		logging.FromContext(ctx).Error("view dependencies unavailable", "hasBlocks", h.Blocks != nil, "hasResolver", h.Resolver != nil)
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	if !guardRate(w, r, h.Limiter, "view") {
		return
	}

	block, ok := h.findBlock(w, r)
	if !ok {
		return
	}

	ctx = logging.With(ctx, "blockId", block.ID)
	result := h.Resolver.Resolve(ctx, referenceFor(block))
	body, err := renderFragment(block.ID, result)
	if err != nil {
		logging.FromContext(ctx).Error("failed to render fragment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to render video")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Watched handles POST /api/v1/blocks/{id}/watched, the completion signal.
func (h BlockHandler) Watched(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Blocks == nil || h.Watches == nil {
		logger.Error("watch dependencies unavailable", "hasBlocks", h.Blocks != nil, "hasWatches", h.Watches != nil)
		respondError(ctx, w, http.StatusInternalServerError, "watch services unavailable")
		return
	}

	var req watchedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid watched payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	block, ok := h.findBlock(w, r)
	if !ok {
		return
	}

	state, err := h.Watches.Record(ctx, block.ID, r.Header.Get(ViewerHeader), req.Watched)
	if err != nil {
		switch {
		case errors.Is(err, watch.ErrMissingViewer):
			respondError(ctx, w, http.StatusBadRequest, "viewer id is required")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "block not found")
		default:
			logger.Error("failed to record watch state", "blockId", block.ID, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to record watch state")
		}
		return
	}

	if req.Watched {
		logger.Info("video watched", "blockId", block.ID, "watchedCount", state.WatchedCount)
	}
	respondJSON(ctx, w, http.StatusOK, watchedResponse{WatchedCount: state.WatchedCount})
}

func (h BlockHandler) findBlock(w http.ResponseWriter, r *http.Request) (models.Block, bool) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "block id is required")
		return models.Block{}, false
	}

	block, err := h.Blocks.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "block not found")
			return models.Block{}, false
		}
		logging.FromContext(ctx).Error("failed to load block", "blockId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load block")
		return models.Block{}, false
	}
	return block, true
}

func (h BlockHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func referenceFor(block models.Block) embed.VideoReference {
	return embed.VideoReference{
		SourceURL: block.SourceURL,
		MaxWidth:  block.MaxWidth,
		MaxHeight: block.MaxHeight,
	}
}

type videoReferenceRequest struct {
	SourceURL string `json:"sourceUrl"`
	MaxWidth  *int   `json:"maxWidth"`
	MaxHeight *int   `json:"maxHeight"`
}

func (req videoReferenceRequest) reference() (embed.VideoReference, error) {
	ref := embed.VideoReference{
		SourceURL: strings.TrimSpace(req.SourceURL),
		MaxWidth:  embed.DefaultMaxWidth,
		MaxHeight: embed.DefaultMaxHeight,
	}
	if req.MaxWidth != nil {
		if *req.MaxWidth < 0 {
			return embed.VideoReference{}, errors.New("maxWidth must not be negative")
		}
		ref.MaxWidth = *req.MaxWidth
	}
	if req.MaxHeight != nil {
		if *req.MaxHeight < 0 {
			return embed.VideoReference{}, errors.New("maxHeight must not be negative")
		}
		ref.MaxHeight = *req.MaxHeight
	}
	return ref, nil
}

type blockResponse struct {
	Block models.Block `json:"block"`
}

type watchedRequest struct {
	Watched bool `json:"watched"`
}

type watchedResponse struct {
	WatchedCount int `json:"watchedCount"`
}
