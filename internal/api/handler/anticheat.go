package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/api/apierr"
	"github.com/mcoot/battlerelay/internal/api/response"
)

// AntiCheatHandler serves the aggregate abuse counters
type AntiCheatHandler struct {
	monitor *abuse.Monitor
	logger  *slog.Logger
}

// NewAntiCheatHandler creates a new anti-cheat handler
func NewAntiCheatHandler(monitor *abuse.Monitor, logger *slog.Logger) *AntiCheatHandler {
	return &AntiCheatHandler{monitor: monitor, logger: logger}
}

// Status handles GET /api/anti-cheat/status
func (h *AntiCheatHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.monitor.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to read abuse counters", slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewServiceUnavailableError("Counter store unavailable"))
		return
	}
	response.JSON(w, http.StatusOK, response.AntiCheatFromStatus(status))
}
