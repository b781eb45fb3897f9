// Package metrics exposes relay activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "battlerelay"

// Drop reasons
const (
	DropRateLimited = "rate_limited"
	DropMalformed   = "malformed"
	DropUnknown     = "unknown_event"
	DropRejected    = "rejected"
	DropPeerFull    = "peer_full"
)

// Relay holds every collector the relay updates
type Relay struct {
	registry *prometheus.Registry

	Connections  prometheus.Gauge
	Players      prometheus.Gauge
	Spectators   prometheus.Gauge
	InboundTotal *prometheus.CounterVec
	Broadcasts   *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	Shots        *prometheus.CounterVec
	Kills        prometheus.Counter
}

// New creates the collectors on a fresh registry, including the Go
// runtime and process collectors.
func New() *Relay {
	reg := prometheus.NewRegistry()
	m := &Relay{
		registry: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open player connections.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Joined player sessions.",
		}),
		Spectators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spectators",
			Help:      "Connected spectator streams.",
		}),
		InboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound events accepted, by event name.",
		}, []string{"event"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Outbound broadcasts, by event name.",
		}, []string{"event"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Inbound or outbound messages dropped, by reason.",
		}, []string{"reason"}),
		Shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_total",
			Help:      "Resolved shots, by weapon and outcome.",
		}, []string{"weapon", "outcome"}),
		Kills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kills_total",
			Help:      "Death transitions caused by shots.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections, m.Players, m.Spectators,
		m.InboundTotal, m.Broadcasts, m.Dropped, m.Shots, m.Kills,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Relay) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Relay) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ShotOutcome is the label value for a resolved shot
func ShotOutcome(hit, killed bool) string {
	switch {
	case killed:
		return "kill"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}
