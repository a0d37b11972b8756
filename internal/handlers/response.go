package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/glowspace/glowspace-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service sentinel errors to HTTP statuses. Anything
// unrecognised is a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, services.ErrDuplicate):
		writeError(w, http.StatusConflict, "Already exists")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// pageParams reads ?before=RFC3339&limit=n. Invalid values are ignored.
func pageParams(r *http.Request) (*time.Time, int) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	var before *time.Time
	if b := r.URL.Query().Get("before"); b != "" {
		if t, err := time.Parse(time.RFC3339, b); err == nil {
			before = &t
		}
	}
	return before, limit
}
