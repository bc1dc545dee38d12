package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports whether the service and its block storage are usable.
type HealthHandler struct {
	Storage string
	Ping    func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	payload := healthResponse{Status: "ok", Storage: h.Storage}

	if h.Ping != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
		defer cancel()
		if err := h.Ping(pingCtx); err != nil {
			payload.Status = "unavailable"
			payload.Error = "storage unreachable"
			respondJSON(ctx, w, http.StatusServiceUnavailable, payload)
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
	Error   string `json:"error,omitempty"`
}
