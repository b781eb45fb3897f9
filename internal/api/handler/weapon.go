package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/battlerelay/internal/api/apierr"
	"github.com/mcoot/battlerelay/internal/api/response"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// WeaponHandler serves the static weapon table
type WeaponHandler struct {
	table *weapons.Table
}

// NewWeaponHandler creates a new weapon handler
func NewWeaponHandler(table *weapons.Table) *WeaponHandler {
	return &WeaponHandler{table: table}
}

// List handles GET /api/shooting/weapons
func (h *WeaponHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Weapons{
		Success:       true,
		DefaultWeapon: string(h.table.DefaultWeapon()),
		Weapons:       h.table.All(),
	})
}

// Get handles GET /api/shooting/weapons/{id}
func (h *WeaponHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	spec, err := h.table.Get(model.WeaponID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Weapon{Success: true, ID: id, Weapon: spec})
}
