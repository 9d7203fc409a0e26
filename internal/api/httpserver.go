// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer wraps a net/http.Server as a suture.Service: Serve blocks
// until ctx is canceled, at which point it drains in-flight requests
// within shutdownTimeout before returning.
type HTTPServer struct {
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPServer constructs an HTTPServer bound to addr (":port").
func NewHTTPServer(addr string, handler http.Handler, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPServer {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServer{addr: addr, handler: handler, shutdownTimeout: shutdownTimeout, logger: logger}
}

// Serve implements suture.Service.
func (h *HTTPServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    h.addr,
		Handler: h.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api: listen on %s: %w", h.addr, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn().Err(err).Msg("api: graceful shutdown timed out, forcing close")
			srv.Close()
		}
		<-errCh
		return ctx.Err()
	}
}
