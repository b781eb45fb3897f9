package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 64 * 1024
)

// Conn is one player's websocket. It implements registry.Peer.
type Conn struct {
	id     model.ConnectionID
	ws     *websocket.Conn
	codec  protocol.Codec
	logger *slog.Logger

	send      chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id model.ConnectionID, ws *websocket.Conn, codec protocol.Codec, sendBuffer int, logger *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		ws:     ws,
		codec:  codec,
		logger: logger.With(slog.String("connection_id", string(id))),
		send:   make(chan protocol.Message, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() model.ConnectionID {
	return c.id
}

// Deliver queues msg for the write loop without blocking
func (c *Conn) Deliver(msg protocol.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close asks the write loop to say goodbye and drop the socket
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump feeds frames to the router in arrival order until the socket
// fails or closes
func (c *Conn) readPump(ctx context.Context, router Router) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if err := router.Handle(ctx, c.id, c.codec, frame); err != nil {
			level := slog.LevelDebug
			if errors.Is(err, model.ErrRateLimited) {
				level = slog.LevelInfo
			}
			c.logger.Log(ctx, level, "event dropped", slog.String("error", err.Error()))
		}
	}
}

// writePump owns every write to the socket
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case msg := <-c.send:
			frame, err := c.codec.Encode(msg)
			if err != nil {
				c.logger.Error("failed to encode message",
					slog.String("event", msg.Event),
					slog.String("error", err.Error()))
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(frameType, frame); err != nil {
				c.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeWait))
			return
		}
	}
}
