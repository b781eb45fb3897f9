package handler

import (
	"net/http"
	"time"

	"github.com/mcoot/battlerelay/internal/api/response"
	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/session"
)

const (
	serverName = "Airsoft AR Battle Server"
	serverMode = "Real-Time PvP"
)

// StatusHandler serves the root health document
type StatusHandler struct {
	store     *session.Store
	clock     clock.Clock
	version   string
	startedAt time.Time
}

// NewStatusHandler creates a status handler; uptime counts from startedAt
func NewStatusHandler(store *session.Store, clk clock.Clock, version string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		store:     store,
		clock:     clk,
		version:   version,
		startedAt: startedAt,
	}
}

// Get handles GET /
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Status{
		Status:  serverName,
		Version: h.version,
		Players: h.store.Count(),
		Uptime:  h.clock.Since(h.startedAt).Seconds(),
		Mode:    serverMode,
	})
}
