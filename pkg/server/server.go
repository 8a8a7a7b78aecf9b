package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"msgcounter/pkg/logger"
)

// DefaultShutdownTimeout bounds how long in-flight requests may take to drain
const DefaultShutdownTimeout = 10 * time.Second

// New creates an HTTP server with conservative timeouts for the ops API
func New(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// an error only when the server fails to start or to drain.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log *logger.Logger) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("Server failed")
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown error")
		return fmt.Errorf("server shutdown: %w", err)
	}

	// wait for ListenAndServe to return
	<-errCh

	log.Info("Server stopped gracefully")
	return nil
}
