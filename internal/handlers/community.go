package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/glowspace/glowspace-backend/internal/middleware"
	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CommunityRepository is implemented by services.CommunityStore.
type CommunityRepository interface {
	List(ctx context.Context, userID, category string) ([]models.Community, error)
	Create(ctx context.Context, creatorID string, in services.CommunityInput) (models.Community, error)
	Join(ctx context.Context, communityID, userID string) error
	Leave(ctx context.Context, communityID, userID string) error
	ListMessages(ctx context.Context, communityID, userID string, before *time.Time, limit int) ([]models.CommunityMessage, bool, error)
	CreateMessage(ctx context.Context, communityID, userID, username, content string) (models.CommunityMessage, error)
	DeleteMessage(ctx context.Context, communityID, messageID, userID string) error
}

// CommunityHandler serves /api/community.
type CommunityHandler struct {
	Communities CommunityRepository
	Users       services.UserFinder
	Log         *zap.Logger
}

func NewCommunityHandler(communities CommunityRepository, users services.UserFinder, logger *zap.Logger) *CommunityHandler {
	return &CommunityHandler{Communities: communities, Users: users, Log: logger}
}

func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Communities.List(r.Context(), middleware.UserIDFromContext(r.Context()), r.URL.Query().Get("category"))
	if err != nil {
		h.Log.Error("failed to list communities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load communities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "communities": list})
}

func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CommunityInput
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Communities.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.Log.Debug("create community failed", zap.Error(err))
		writeServiceError(w, err, "Failed to create community")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "Community created",
		"community": c,
	})
}

func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	if err := h.Communities.Join(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context())); err != nil {
		writeServiceError(w, err, "Failed to join community")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Joined community"})
}

func (h *CommunityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.Communities.Leave(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context())); err != nil {
		writeServiceError(w, err, "Failed to leave community")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Left community"})
}

func (h *CommunityHandler) Messages(w http.ResponseWriter, r *http.Request) {
	before, limit := pageParams(r)
	msgs, hasMore, err := h.Communities.ListMessages(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), before, limit)
	if err != nil {
		writeServiceError(w, err, "Failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": msgs,
		"has_more": hasMore,
	})
}

func (h *CommunityHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	user, err := h.Users.FindActiveByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to post message")
		return
	}

	msg, err := h.Communities.CreateMessage(r.Context(), chi.URLParam(r, "id"), userID, user.Name, req.Content)
	if err != nil {
		writeServiceError(w, err, "Failed to post message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": msg})
}

func (h *CommunityHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := h.Communities.DeleteMessage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "messageId"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Message deleted"})
}
