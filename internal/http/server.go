package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mrlokans/offlinemirror/internal/logging"
)

// HTTPServer matches the lifecycle methods of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// ServerService runs an HTTP server under a supervisor, shutting it down
// gracefully when the supervisor's context ends.
type ServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewServerService(server HTTPServer, shutdownTimeout time.Duration) *ServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ServerService{server: server, shutdownTimeout: shutdownTimeout}
}

func (s *ServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.Info().Dur("timeout", s.shutdownTimeout).Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *ServerService) String() string {
	return "http-server"
}
