package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/battlerelay/internal/api/apierr"
	"github.com/mcoot/battlerelay/internal/api/response"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/session"
)

// PlayerHandler serves the live roster
type PlayerHandler struct {
	store *session.Store
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(store *session.Store) *PlayerHandler {
	return &PlayerHandler{store: store}
}

// List handles GET /api/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PlayersFromModel(h.store.Snapshot()))
}

// Get handles GET /api/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.ConnectionID(mux.Vars(r)["id"])

	player, err := h.store.Get(id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerDetail{
		Success: true,
		Player:  response.PlayerFromModel(player),
	})
}
