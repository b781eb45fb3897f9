package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a snapshot as JSON. Snapshots describe live game state, so
// they are never cacheable.
func JSON(w http.ResponseWriter, status int, data any) {
	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
