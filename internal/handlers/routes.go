package handlers

import (
	"context"
	"net/http"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Storage: deps.Storage, Ping: deps.StoragePing}
	blocks := BlockHandler{
		Blocks:   deps.Blocks,
		Resolver: deps.Resolver,
		Watches:  deps.Watches,
		Limiter:  deps.ViewLimiter,
	}
	embeds := EmbedHandler{
		Resolver: deps.Resolver,
		Registry: deps.Providers,
		Limiter:  deps.ViewLimiter,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/blocks/{id}", blocks.Handle)
	mux.HandleFunc("/api/v1/blocks/{id}/view", blocks.View)
	mux.HandleFunc("/api/v1/blocks/{id}/watched", blocks.Watched)
	mux.HandleFunc("/api/v1/embed/resolve", embeds.Resolve)
	mux.HandleFunc("/api/v1/embed/providers", embeds.Providers)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Blocks      BlockStore
	Resolver    EmbedResolver
	Watches     WatchRecorder
	Providers   ProviderLister
	ViewLimiter RateLimiter
	Storage     string
	StoragePing func(ctx context.Context) error
}
