// Package server exposes one running session over HTTP: a websocket
// endpoint relaying snapshots out and commands in, plus a health check.
// It serves a single simulation to a single connected observer at a time
// rather than multiplexing a fleet of views.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"groceria/session"
	"groceria/snapshot"
	"groceria/transport"
)

// Server routes a session's websocket and health endpoints through a
// gorilla/mux router.
type Server struct {
	addr    string
	router  *mux.Router
	ctrl    *session.Controller
	updates chan snapshot.Snapshot
	http    *http.Server
}

// NewServer builds a Server around an already-constructed Controller. Call
// Run (in its own goroutine) before Serve, so the websocket handler has
// snapshots to relay.
func NewServer(addr string, ctrl *session.Controller) *Server {
	s := &Server{
		addr:    addr,
		router:  mux.NewRouter(),
		ctrl:    ctrl,
		updates: make(chan snapshot.Snapshot, 4),
	}
	s.router.HandleFunc("/ws", s.serveWebsocket).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.serveHealth).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Run drives the session controller to completion, forwarding every
// emitted snapshot onto the server's update channel. Emission is
// non-blocking: with no client connected (or a slow one), a snapshot is
// dropped rather than stalling the tick loop. Dropping here is never an
// error; only a genuine send failure on an open websocket (handled inside
// transport.Client) counts as one.
func (s *Server) Run(ctx context.Context, withConsole bool) error {
	defer close(s.updates)
	return s.ctrl.Run(ctx, func(snap snapshot.Snapshot) error {
		select {
		case s.updates <- snap:
		default:
		}
		return nil
	}, withConsole)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// serveWebsocket upgrades the connection and relays snapshots/commands
// until the client disconnects or a transport error occurs.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	client, err := transport.Upgrade(s.updates, s.ctrl.Commands(), w, r)
	if err != nil {
		log.Println("server: upgrade failed:", err)
		return
	}
	if err := client.Sync(); err != nil {
		log.Println("server: client disconnected:", err)
	}
}

// Serve blocks, serving HTTP until the listener fails or Shutdown is
// called, in which case it returns nil (a clean stop, not a listen error).
func (s *Server) Serve() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
