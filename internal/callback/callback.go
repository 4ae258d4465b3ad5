// Package callback serves the OAuth redirect target used while obtaining a
// marketplace user token. It echoes the authorization code back so it can
// be copied by hand.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/FranksOps/scout/internal/metrics"
)

// DefaultAddr is the listen address the redirect URI points at.
const DefaultAddr = ":8000"

// Path is the redirect path.
const Path = "/callback"

// Handler answers GET /callback?code=X with "Received code: X". A missing
// code echoes an empty value.
func Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		code := r.URL.Query().Get("code")
		metrics.CallbacksTotal.Inc()
		logger.Info("authorization code received", "present", code != "", "remote", r.RemoteAddr)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Received code: %s", code)
	})
}

// NewMux routes Path to Handler.
func NewMux(logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler(logger))
	return mux
}

// Server is the callback HTTP server.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer prepares a server on addr without starting it.
func NewServer(addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewMux(logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve accepts connections on l until Shutdown. A graceful shutdown is not
// reported as an error.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("callback server listening", "addr", l.Addr().String(), "path", Path)
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("callback: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	return s.Serve(l)
}

// Shutdown stops the server, waiting up to 5s for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
