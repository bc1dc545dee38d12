package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/trowebvideo/backend/internal/embed"
	"github.com/trowebvideo/backend/internal/logging"
)

// EmbedHandler exposes the resolver to the authoring form.
type EmbedHandler struct {
	Resolver EmbedResolver
	Registry ProviderLister
	Limiter  RateLimiter
}

// Resolve handles POST /api/v1/embed/resolve, previewing a video reference
// without saving it.
func (h EmbedHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Resolver == nil {
		logger.Error("embed resolver unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	if !guardRate(w, r, h.Limiter, "resolve") {
		return
	}

	var req videoReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resolve payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	ref, err := req.reference()
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.Resolver.Resolve(ctx, ref)
	respondJSON(ctx, w, http.StatusOK, resolveResponse{
		Status:       result.Status.String(),
		ProviderHost: result.ProviderHost,
		Markup:       result.Markup,
		Failure:      result.Failure.String(),
		Detail:       result.Detail,
		Message:      result.Message(),
	})
}

// Providers handles GET /api/v1/embed/providers.
func (h EmbedHandler) Providers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Registry == nil {
		logging.FromContext(ctx).Error("provider registry unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	providers := h.Registry.Providers()
	if providers == nil {
		providers = []embed.Provider{}
	}
	respondJSON(ctx, w, http.StatusOK, providersResponse{Providers: providers})
}

type resolveResponse struct {
	Status       string `json:"status"`
	ProviderHost string `json:"providerHost,omitempty"`
	Markup       string `json:"markup,omitempty"`
	Failure      string `json:"failure,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Message      string `json:"message,omitempty"`
}

type providersResponse struct {
	Providers []embed.Provider `json:"providers"`
}
