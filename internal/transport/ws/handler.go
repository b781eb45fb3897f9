// Package ws carries the player protocol over websockets: one read loop and
// one write loop per connection.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
	"github.com/mcoot/battlerelay/internal/registry"
)

// Router is the part of the relay the transport drives
type Router interface {
	Connect(peer registry.Peer) error
	Handle(ctx context.Context, id model.ConnectionID, codec protocol.Codec, frame []byte) error
	Disconnect(id model.ConnectionID)
}

// Config tunes the websocket handler
type Config struct {
	// SendBuffer is the per-connection outbound queue length
	SendBuffer int
	// AllowedOrigins lists browser origins allowed to connect. Empty allows
	// any origin; native clients send none.
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to player connections
type Handler struct {
	router   Router
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket handler for the router
func NewHandler(router Router, cfg Config, logger *slog.Logger) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	h := &Handler{
		router: router,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    protocol.Subprotocols(),
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	h.logger.Warn("rejected websocket origin", slog.String("origin", origin))
	return false
}

// ServeHTTP upgrades the request and runs the connection until it closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an error response
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	codec := protocol.ForSubprotocol(wsConn.Subprotocol())
	conn := newConn(model.ConnectionID(uuid.NewString()), wsConn, codec, h.cfg.SendBuffer, h.logger)

	if err := h.router.Connect(conn); err != nil {
		h.logger.Error("failed to register connection",
			slog.String("connection_id", string(conn.id)),
			slog.String("error", err.Error()))
		_ = wsConn.Close()
		return
	}

	h.logger.Debug("websocket connected",
		slog.String("connection_id", string(conn.id)),
		slog.String("codec", codec.Name()),
		slog.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(context.Background())
	go conn.writePump()
	conn.readPump(ctx, h.router)

	cancel()
	h.router.Disconnect(conn.id)
	conn.Close()
}
