package spectate

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the spectator
	writeWait = 10 * time.Second

	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one connected spectator stream
type Client struct {
	id          string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new spectator client
func NewClient() *Client {
	return &Client{
		id:          uuid.NewString(),
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams hub events to one spectator until it goes away
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient()
	if !hub.Register(client) {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	write := func(p []byte) error {
		// the server's write timeout would otherwise cut the stream
		_ = rc.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := w.Write(p); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := write([]byte("event: connected\ndata: {\"status\":\"connected\",\"id\":\"" + client.id + "\"}\n\n")); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if err := write(message); err != nil {
				return
			}

		case <-ticker.C:
			if err := write([]byte(": keepalive\n\n")); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
