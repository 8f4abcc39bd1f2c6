// Package http hosts the WebSocket upgrade endpoint and a liveness probe
// behind go-chi (spec §1: "the core is transport-agnostic"; this is the
// one transport this repository ships a concrete adapter for). Adapted
// from the teacher's internal/handler/lp/delivery.go chi-routing
// convention, rewired onto internal/transport/ws instead of long-polling.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/im-sync-core/config"
	"github.com/webitel/im-sync-core/internal/transport/ws"
)

type Server struct {
	srv *http.Server
}

func NewServer(cfg *config.Config, wsHandler *ws.Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get(cfg.HTTP.WSPath, wsHandler.ServeHTTP)

	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTP.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start launches the listener in the background; a synchronous bind error
// is returned immediately, anything after that is logged by the standard
// server's ErrorLog rather than propagated (the process is already running).
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
