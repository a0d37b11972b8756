package handlers

import (
	"net/http"

	"github.com/glowspace/glowspace-backend/internal/realtime"
	"go.uber.org/zap"
)

// PresenceHandler exposes the socket gateway's registry over REST, so the
// online list agrees with what connected clients see.
type PresenceHandler struct {
	Presence realtime.PresenceStore
	Log      *zap.Logger
}

func NewPresenceHandler(presence realtime.PresenceStore, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{Presence: presence, Log: logger}
}

func (h *PresenceHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Presence.List(r.Context())
	if err != nil {
		h.Log.Error("failed to list online users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load online users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}
