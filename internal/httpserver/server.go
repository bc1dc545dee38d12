package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// defaultWriteTimeout applies when New is given a non-positive write timeout.
	defaultWriteTimeout = 15 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

// ShutdownTimeout controls how long to wait for in-flight requests to drain.
var ShutdownTimeout = 10 * time.Second

// Server wraps http.Server with the timeouts the block endpoints need.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. writeTimeout must
// leave room for the slowest outbound provider call a handler makes.
func New(port int, handler http.Handler, writeTimeout time.Duration) *Server {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
		},
	}
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- s.inner.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.inner.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
