package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/glowspace/glowspace-backend/internal/middleware"
	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChatService is implemented by services.ChatService.
type ChatService interface {
	Send(ctx context.Context, senderID, receiverID, content string, kind models.MessageType) (models.Message, error)
	History(ctx context.Context, userID, otherID string, before *time.Time, limit int64) ([]models.Message, bool, error)
	Edit(ctx context.Context, id, userID, content string) (*models.Message, error)
	Delete(ctx context.Context, id, userID string) (*models.Message, error)
	React(ctx context.Context, id, userID, emoji string) (*models.Message, error)
	MarkRead(ctx context.Context, userID, otherID string) (int64, error)
}

// ChatHandler serves /api/chat. Clients persist here, then emit the matching
// socket event so other members see the change live.
type ChatHandler struct {
	Chat ChatService
	Log  *zap.Logger
}

func NewChatHandler(chat ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{Chat: chat, Log: logger}
}

type SendMessageRequest struct {
	ReceiverID  string             `json:"receiverId"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"messageType,omitempty"`
}

type ContentRequest struct {
	Content string `json:"content"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// LoadChatHistoryResponse is returned when loading historical messages.
type LoadChatHistoryResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.Chat.Send(r.Context(), middleware.UserIDFromContext(r.Context()), req.ReceiverID, req.Content, req.MessageType)
	if err != nil {
		h.logFailure("send message", err)
		writeServiceError(w, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Message sent",
		"data":    msg,
	})
}

// GetConversation loads paginated history with another user.
// Query params:
//
//	before (optional RFC3339 timestamp for pagination)
//	limit  (optional, default 50)
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	before, limit := pageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msgs, hasMore, err := h.Chat.History(ctx, middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "userId"), before, int64(limit))
	if err != nil {
		h.logFailure("load conversation", err)
		writeServiceError(w, err, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, LoadChatHistoryResponse{
		Success:  true,
		Messages: msgs,
		HasMore:  hasMore,
	})
}

func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.Chat.Edit(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), req.Content)
	if err != nil {
		h.logFailure("edit message", err)
		writeServiceError(w, err, "Failed to edit message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": msg})
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Chat.Delete(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.logFailure("delete message", err)
		writeServiceError(w, err, "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": msg})
}

func (h *ChatHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.Chat.React(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), req.Emoji)
	if err != nil {
		h.logFailure("toggle reaction", err)
		writeServiceError(w, err, "Failed to update reaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": msg.ID.Hex(),
		"reactions": msg.Reactions,
	})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Chat.MarkRead(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		h.logFailure("mark conversation read", err)
		writeServiceError(w, err, "Failed to mark messages read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "updated": n})
}

func (h *ChatHandler) logFailure(op string, err error) {
	h.Log.Debug("chat request failed", zap.String("op", op), zap.Error(err))
}
