package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battlerelay/internal/model"
)

func TestWriteError_MapsModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session", fmt.Errorf("lookup: %w", model.ErrSessionNotFound), http.StatusNotFound, CodePlayerNotFound},
		{"weapon", model.ErrInvalidWeapon, http.StatusNotFound, CodeWeaponNotFound},
		{"unavailable", NewServiceUnavailableError("redis down"), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Empty(t, body.Endpoints)
		})
	}
}

func TestWriteError_InternalMessageIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("dial tcp 10.0.0.1:6379: connection refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestWriteRoutingError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRoutingError(rec, NewNotFoundError("/nope"), []string{"GET /"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"code": "NOT_FOUND", "message": "Route /nope not found"},
		"endpoints": ["GET /"]
	}`, rec.Body.String())
}
