// Package registry tracks live connections. A connection is registered when
// its transport opens and unregistered when it closes, whether or not the
// player ever joined.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
)

// Peer is the outbound side of one connection
type Peer interface {
	ID() model.ConnectionID
	// Deliver enqueues a message without blocking. It returns false when the
	// message was dropped because the peer is full or closed.
	Deliver(msg protocol.Message) bool
	// Close shuts the connection down; the transport then reports the
	// disconnect as usual.
	Close()
}

// Registry is the Connection Registry
type Registry struct {
	mu     sync.RWMutex
	peers  map[model.ConnectionID]Peer
	logger *slog.Logger
}

// New creates an empty registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		peers:  make(map[model.ConnectionID]Peer),
		logger: logger.With(slog.String("component", "registry")),
	}
}

// Register adds a peer. A duplicate id is a programming error in the
// transport and is reported rather than overwritten.
func (r *Registry) Register(peer Peer) error {
	id := peer.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[id]; ok {
		return fmt.Errorf("register %s: %w", id, model.ErrAlreadyRegistered)
	}
	r.peers[id] = peer
	r.logger.Debug("connection registered",
		slog.String("connection_id", string(id)),
		slog.Int("total_connections", len(r.peers)))
	return nil
}

// Unregister removes a peer; unknown ids are ignored
func (r *Registry) Unregister(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[id]; !ok {
		return
	}
	delete(r.peers, id)
	r.logger.Debug("connection unregistered",
		slog.String("connection_id", string(id)),
		slog.Int("total_connections", len(r.peers)))
}

// Get looks up a peer by id
func (r *Registry) Get(id model.ConnectionID) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, ok := r.peers[id]
	if !ok {
		return nil, model.ErrConnectionNotFound
	}
	return peer, nil
}

// Snapshot returns the live peers at one point in time, ordered by id.
// The slice is owned by the caller.
func (r *Registry) Snapshot() []Peer {
	r.mu.RLock()
	out := make([]Peer, 0, len(r.peers))
	for _, peer := range r.peers {
		out = append(out, peer)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
