// Package relay is the event router: it turns inbound player events into
// store and combat operations and fans the results out to connections.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/combat"
	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/metrics"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
	"github.com/mcoot/battlerelay/internal/registry"
	"github.com/mcoot/battlerelay/internal/session"
)

const welcomeMessage = "Connected to Real-Time PvP Server!"

// Mirror receives a copy of every broadcast
type Mirror interface {
	Publish(msg protocol.Message)
}

// Deps are the collaborators a Router works with
type Deps struct {
	Registry *registry.Registry
	Store    *session.Store
	Engine   *combat.Engine
	Monitor  *abuse.Monitor
	Mirror   Mirror // optional
	Metrics  *metrics.Relay
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Router owns the single battle room
type Router struct {
	registry *registry.Registry
	store    *session.Store
	engine   *combat.Engine
	monitor  *abuse.Monitor
	mirror   Mirror
	metrics  *metrics.Relay
	clock    clock.Clock
	logger   *slog.Logger
}

// NewRouter creates a router over the given collaborators
func NewRouter(deps Deps) *Router {
	return &Router{
		registry: deps.Registry,
		store:    deps.Store,
		engine:   deps.Engine,
		monitor:  deps.Monitor,
		mirror:   deps.Mirror,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		logger:   deps.Logger.With(slog.String("component", "relay")),
	}
}

// Connect registers a new connection and greets it
func (r *Router) Connect(peer registry.Peer) error {
	if err := r.registry.Register(peer); err != nil {
		return err
	}
	r.metrics.Connections.Inc()

	r.logger.Info("player connected", slog.String("connection_id", string(peer.ID())))

	r.deliver(peer, protocol.Message{
		Event: protocol.EventServerStatus,
		Data:  protocol.NewServerStatus(welcomeMessage, "realServer", peer.ID(), r.clock.Now()),
	})
	return nil
}

// Handle processes one inbound frame from a connection. Callers must not
// call Handle concurrently for the same connection. Returned errors are
// informational: the event was dropped, the connection stays open.
func (r *Router) Handle(ctx context.Context, id model.ConnectionID, codec protocol.Codec, frame []byte) error {
	if !r.monitor.AllowMessage(ctx, id) {
		r.metrics.Dropped.WithLabelValues(metrics.DropRateLimited).Inc()
		return model.ErrRateLimited
	}

	env, err := codec.Decode(frame)
	if err != nil {
		r.metrics.Dropped.WithLabelValues(metrics.DropMalformed).Inc()
		return err
	}

	switch env.Event {
	case protocol.EventJoinGame:
		err = r.handleJoin(id, codec, env)
	case protocol.EventGPSUpdate:
		err = r.handleGPS(id, codec, env)
	case protocol.EventPositionUpdate:
		err = r.handlePosition(id, codec, env)
	case protocol.EventFireWeapon:
		err = r.handleFire(ctx, id, codec, env)
	case protocol.EventRespawn:
		err = r.handleRespawn(id)
	case protocol.EventSwitchWeapon:
		err = r.handleSwitchWeapon(id, codec, env)
	default:
		err = fmt.Errorf("%q: %w", env.Event, model.ErrUnknownEvent)
	}

	switch {
	case err == nil:
		r.metrics.InboundTotal.WithLabelValues(env.Event).Inc()
	case errors.Is(err, model.ErrMalformedPayload):
		r.metrics.Dropped.WithLabelValues(metrics.DropMalformed).Inc()
	case errors.Is(err, model.ErrRateLimited):
		r.metrics.Dropped.WithLabelValues(metrics.DropRateLimited).Inc()
	case errors.Is(err, model.ErrUnknownEvent):
		r.metrics.Dropped.WithLabelValues(metrics.DropUnknown).Inc()
	default:
		r.metrics.Dropped.WithLabelValues(metrics.DropRejected).Inc()
	}
	return err
}

// Disconnect removes a closed connection. Every way a connection can end
// converges here; calling it twice is harmless.
func (r *Router) Disconnect(id model.ConnectionID) {
	if _, err := r.registry.Get(id); err == nil {
		r.registry.Unregister(id)
		r.metrics.Connections.Dec()
	}
	r.monitor.Forget(id)

	player, ok := r.store.Remove(id)
	if !ok {
		r.logger.Debug("connection closed without a session", slog.String("connection_id", string(id)))
		return
	}
	r.metrics.Players.Set(float64(r.store.Count()))

	r.logger.Info("player left",
		slog.String("connection_id", string(id)),
		slog.String("name", player.DisplayName))

	r.Broadcast(protocol.Message{
		Event: protocol.EventPlayerLeft,
		Data:  protocol.PlayerLeft{PlayerID: string(id), Name: player.DisplayName},
	}, "")
	r.broadcastCount()
}

// Shutdown closes every open connection
func (r *Router) Shutdown() {
	peers := r.registry.Snapshot()
	for _, peer := range peers {
		peer.Close()
	}
	r.logger.Info("relay shut down", slog.Int("closed_connections", len(peers)))
}

// Broadcast delivers msg to every connection except exclude, which may be
// empty. A peer that cannot keep up loses this message only.
func (r *Router) Broadcast(msg protocol.Message, exclude model.ConnectionID) {
	delivered := 0
	for _, peer := range r.registry.Snapshot() {
		if peer.ID() == exclude {
			continue
		}
		if r.deliver(peer, msg) {
			delivered++
		}
	}
	r.metrics.Broadcasts.WithLabelValues(msg.Event).Inc()
	if r.mirror != nil {
		r.mirror.Publish(msg)
	}
	r.logger.Debug("broadcast",
		slog.String("event", msg.Event),
		slog.Int("delivered", delivered))
}

func (r *Router) deliver(peer registry.Peer, msg protocol.Message) bool {
	if peer.Deliver(msg) {
		return true
	}
	r.metrics.Dropped.WithLabelValues(metrics.DropPeerFull).Inc()
	r.logger.Warn("message dropped - peer buffer full",
		slog.String("connection_id", string(peer.ID())),
		slog.String("event", msg.Event))
	return false
}

func (r *Router) broadcastCount() {
	r.Broadcast(protocol.Message{
		Event: protocol.EventPlayerCount,
		Data:  protocol.PlayerCount{Count: r.store.Count()},
	}, "")
}
