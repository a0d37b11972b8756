package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeChat struct {
	err error

	sender, receiver, content string
	kind                      models.MessageType
	before                    *time.Time
	limit                     int64
	history                   []models.Message
	id, userID                string
}

func (f *fakeChat) Send(_ context.Context, senderID, receiverID, content string, kind models.MessageType) (models.Message, error) {
	f.sender, f.receiver, f.content, f.kind = senderID, receiverID, content, kind
	if f.err != nil {
		return models.Message{}, f.err
	}
	return models.Message{ID: primitive.NewObjectID(), SenderID: senderID, ReceiverID: receiverID, Content: content}, nil
}

func (f *fakeChat) History(_ context.Context, userID, otherID string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	f.userID, f.receiver, f.before, f.limit = userID, otherID, before, limit
	return f.history, len(f.history) > 0, f.err
}

func (f *fakeChat) Edit(_ context.Context, id, userID, content string) (*models.Message, error) {
	f.id, f.userID, f.content = id, userID, content
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{Content: content, IsEdited: true}, nil
}

func (f *fakeChat) Delete(_ context.Context, id, userID string) (*models.Message, error) {
	f.id, f.userID = id, userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{IsDeleted: true}, nil
}

func (f *fakeChat) React(_ context.Context, id, userID, emoji string) (*models.Message, error) {
	f.id, f.userID = id, userID
	if f.err != nil {
		return nil, f.err
	}
	oid, _ := primitive.ObjectIDFromHex(id)
	return &models.Message{ID: oid, Reactions: []models.Reaction{{UserID: userID, Emoji: emoji}}}, nil
}

func (f *fakeChat) MarkRead(_ context.Context, userID, otherID string) (int64, error) {
	f.userID, f.receiver = userID, otherID
	return 3, f.err
}

func chatRouter(chat *fakeChat, userID string) http.Handler {
	h := NewChatHandler(chat, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/api/chat/messages", h.SendMessage)
	r.Put("/api/chat/messages/{id}", h.EditMessage)
	r.Delete("/api/chat/messages/{id}", h.DeleteMessage)
	r.Post("/api/chat/messages/{id}/reactions", h.ToggleReaction)
	r.Get("/api/chat/conversations/{userId}", h.GetConversation)
	r.Put("/api/chat/conversations/{userId}/read", h.MarkRead)
	return asUser(userID, r)
}

func TestSendMessage(t *testing.T) {
	chat := &fakeChat{}
	rec := do(t, chatRouter(chat, "alice"), http.MethodPost, "/api/chat/messages", SendMessageRequest{
		ReceiverID: "bob",
		Content:    "hi",
	})
	expectStatus(t, rec, http.StatusCreated)

	if chat.sender != "alice" || chat.receiver != "bob" || chat.content != "hi" {
		t.Errorf("service got sender=%q receiver=%q content=%q", chat.sender, chat.receiver, chat.content)
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]interface{})
	if data["content"] != "hi" {
		t.Errorf("data: got %v", data)
	}
}

func TestChatErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		target string
		body   interface{}
		want   int
	}{
		{"invalid content", services.ErrInvalidInput, http.MethodPost, "/api/chat/messages", SendMessageRequest{ReceiverID: "bob"}, http.StatusBadRequest},
		{"edit not owner", services.ErrForbidden, http.MethodPut, "/api/chat/messages/m1", ContentRequest{Content: "x"}, http.StatusForbidden},
		{"delete missing", services.ErrNotFound, http.MethodDelete, "/api/chat/messages/m1", nil, http.StatusNotFound},
		{"history store down", context.DeadlineExceeded, http.MethodGet, "/api/chat/conversations/bob", nil, http.StatusInternalServerError},
		{"malformed body", nil, http.MethodPost, "/api/chat/messages/m1/reactions", "not json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, chatRouter(&fakeChat{err: tt.err}, "alice"), tt.method, tt.target, tt.body)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestGetConversation(t *testing.T) {
	chat := &fakeChat{}
	rec := do(t, chatRouter(chat, "alice"), http.MethodGet, "/api/chat/conversations/bob?before=2026-01-02T15:04:05Z&limit=20", nil)
	expectStatus(t, rec, http.StatusOK)

	if chat.userID != "alice" || chat.receiver != "bob" {
		t.Errorf("participants: got %q and %q", chat.userID, chat.receiver)
	}
	if chat.limit != 20 {
		t.Errorf("limit: got %d", chat.limit)
	}
	if chat.before == nil || !chat.before.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Errorf("before: got %v", chat.before)
	}

	body := decodeBody(t, rec)
	msgs, ok := body["messages"].([]interface{})
	if !ok || len(msgs) != 0 {
		t.Errorf("empty history should encode as [], got %v", body["messages"])
	}
	if body["has_more"] != false {
		t.Errorf("has_more: got %v", body["has_more"])
	}
}

func TestGetConversation_InvalidPageParamsFallBack(t *testing.T) {
	chat := &fakeChat{}
	rec := do(t, chatRouter(chat, "alice"), http.MethodGet, "/api/chat/conversations/bob?before=yesterday&limit=500", nil)
	expectStatus(t, rec, http.StatusOK)
	if chat.limit != 50 || chat.before != nil {
		t.Errorf("got limit=%d before=%v, want defaults", chat.limit, chat.before)
	}
}

func TestToggleReactionAndMarkRead(t *testing.T) {
	chat := &fakeChat{}
	id := primitive.NewObjectID().Hex()

	rec := do(t, chatRouter(chat, "alice"), http.MethodPost, "/api/chat/messages/"+id+"/reactions", ReactionRequest{Emoji: "🌱"})
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["messageId"] != id {
		t.Errorf("messageId: got %v, want %s", body["messageId"], id)
	}
	if reactions, _ := body["reactions"].([]interface{}); len(reactions) != 1 {
		t.Errorf("reactions: got %v", body["reactions"])
	}

	rec = do(t, chatRouter(chat, "alice"), http.MethodPut, "/api/chat/conversations/bob/read", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["updated"]; got != float64(3) {
		t.Errorf("updated: got %v", got)
	}
	if chat.userID != "alice" || chat.receiver != "bob" {
		t.Errorf("mark read participants: got %q and %q", chat.userID, chat.receiver)
	}
}
