package telemetry

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes a Hub over HTTP: GET /ws upgrades to a websocket stream
// of Snapshot JSON messages, replaying the latest snapshot immediately on
// connect so a client never waits a full cycle for its first update.
type Server struct {
	hub *Hub
	log *slog.Logger
}

// NewServer wraps hub for HTTP serving. log may be nil, in which case
// slog.Default() is used.
func NewServer(hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{hub: hub, log: log}
}

// Handler returns an http.Handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Snapshot, 16)}
	s.hub.register <- c

	select {
	case c.send <- s.hub.Latest():
	default:
	}

	go c.writePump()
}
