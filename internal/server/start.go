package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Run serves on addr until ctx is cancelled or the listener fails. It does
// not stop the server; callers follow up with Shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops accepting requests and ends every open chat stream so
// socket handlers return.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.chat.Close()
	return s.E.Shutdown(ctx)
}
