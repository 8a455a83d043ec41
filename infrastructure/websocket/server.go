// Package websocket carries relay events over websocket connections.
// Frames are JSON envelopes {"event": ..., "data": ...}; closing the socket is the disconnect.
package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	ws "github.com/gorilla/websocket"
)

const anyOrigin = "*"

type ServerConfig struct {
	Greeting      string
	MaxFrameBytes int64
	AllowedOrigin string
}

type Server struct {
	log      *slog.Logger
	relay    contract.IRelay
	upgrader ws.Upgrader
	config   ServerConfig
}

func NewServer(log *slog.Logger, relay contract.IRelay, config ServerConfig) *Server {
	s := &Server{log: log, relay: relay, config: config}
	s.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes exposes the greeting used as liveness probe, the websocket
// endpoint and the Prometheus metrics.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.greet)
	mux.HandleFunc("GET /ws", s.serveWebsocket)
	mux.Handle("GET /metrics", observability.Handler())
	return mux
}

func (s *Server) greet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, s.config.Greeting)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.config.AllowedOrigin == "" || s.config.AllowedOrigin == anyOrigin {
		return true
	}
	return r.Header.Get("Origin") == s.config.AllowedOrigin
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.config.MaxFrameBytes > 0 {
		socket.SetReadLimit(s.config.MaxFrameBytes)
	}
	conn := NewConnection(socket)
	observability.ConnectionOpened()
	defer observability.ConnectionClosed()

	s.log.Debug("Connection opened", "connection_id", conn.ID(), "remote", r.RemoteAddr)
	s.Serve(r.Context(), conn)
}

// Serve reads frames until the socket closes, handing each event to the relay
// in arrival order. The disconnect is always reported, exactly once.
func (s *Server) Serve(ctx context.Context, conn *Connection) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() {
		s.relay.Handle(context.WithoutCancel(ctx), conn, domain.DisconnectEvent{})
		_ = conn.Close()
		s.log.Debug("Connection closed", "connection_id", conn.ID())
	}()

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.log.Warn("Connection lost", "connection_id", conn.ID(), "error", err)
			}
			return
		}
		evt, err := DecodeEvent(data)
		if err != nil {
			s.log.Warn("Dropping frame", "connection_id", conn.ID(), "error", err)
			continue
		}
		s.relay.Handle(ctx, conn, evt)
	}
}
