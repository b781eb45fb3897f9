package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/api/apierr"
	"github.com/mcoot/battlerelay/internal/api/handler"
	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/middleware"
	"github.com/mcoot/battlerelay/internal/session"
	"github.com/mcoot/battlerelay/internal/spectate"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Store      *session.Store
	Weapons    *weapons.Table
	Monitor    *abuse.Monitor
	Clock      clock.Clock
	Version    string
	StartedAt  time.Time
	WebSocket  http.Handler
	Spectators *spectate.Hub
	Metrics    http.Handler
}

// Endpoints is the public route list returned with routing errors
var Endpoints = []string{
	"GET /",
	"GET /api/players",
	"GET /api/players/{id}",
	"GET /api/shooting/weapons",
	"GET /api/shooting/weapons/{id}",
	"GET /api/anti-cheat/status",
	"GET /api/events",
	"GET /ws",
	"GET /metrics",
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	statusHandler := handler.NewStatusHandler(cfg.Store, cfg.Clock, cfg.Version, cfg.StartedAt)
	playerHandler := handler.NewPlayerHandler(cfg.Store)
	weaponHandler := handler.NewWeaponHandler(cfg.Weapons)
	antiCheatHandler := handler.NewAntiCheatHandler(cfg.Monitor, cfg.Logger)

	withMiddleware := apiMiddleware(cfg.Logger)
	r.Use(withMiddleware)

	// Status and bootstrap routes
	r.HandleFunc("/", statusHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/players", playerHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/shooting/weapons", weaponHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/api/shooting/weapons/{id}", weaponHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/anti-cheat/status", antiCheatHandler.Status).Methods(http.MethodGet)

	// Streams
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}
	if cfg.Spectators != nil {
		r.HandleFunc("/api/events", func(w http.ResponseWriter, req *http.Request) {
			spectate.ServeSSE(w, req, cfg.Spectators)
		}).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	// mux skips route middleware when nothing matches
	r.NotFoundHandler = withMiddleware(http.HandlerFunc(notFoundHandler))
	r.MethodNotAllowedHandler = withMiddleware(http.HandlerFunc(methodNotAllowedHandler))

	return r
}

// apiMiddleware is recovery outermost, then request logging
func apiMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	recovery := middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
	logging := middleware.Logging(logger)
	return func(next http.Handler) http.Handler {
		return recovery(logging(next))
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	apierr.WriteRoutingError(w, apierr.NewNotFoundError(r.URL.Path), Endpoints)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	apierr.WriteRoutingError(w, apierr.NewMethodNotAllowedError(r.Method, r.URL.Path), Endpoints)
}
