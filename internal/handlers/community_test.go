package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fakeCommunities struct {
	err     error
	members map[string]bool

	posted models.CommunityMessage
	input  services.CommunityInput
}

func (f *fakeCommunities) List(_ context.Context, userID, category string) ([]models.Community, error) {
	return []models.Community{{ID: "c1", Name: "Calm", Category: category, IsMember: f.members[userID]}}, f.err
}

func (f *fakeCommunities) Create(_ context.Context, creatorID string, in services.CommunityInput) (models.Community, error) {
	f.input = in
	if f.err != nil {
		return models.Community{}, f.err
	}
	return models.Community{ID: "c2", Name: in.Name, CreatedBy: creatorID, MemberCount: 1}, nil
}

func (f *fakeCommunities) Join(_ context.Context, _, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.members[userID] = true
	return nil
}

func (f *fakeCommunities) Leave(_ context.Context, _, userID string) error {
	delete(f.members, userID)
	return f.err
}

func (f *fakeCommunities) ListMessages(_ context.Context, _, userID string, _ *time.Time, _ int) ([]models.CommunityMessage, bool, error) {
	if !f.members[userID] {
		return nil, false, services.ErrForbidden
	}
	return []models.CommunityMessage{f.posted}, false, nil
}

func (f *fakeCommunities) CreateMessage(_ context.Context, communityID, userID, username, content string) (models.CommunityMessage, error) {
	if !f.members[userID] {
		return models.CommunityMessage{}, services.ErrForbidden
	}
	f.posted = models.CommunityMessage{ID: "m1", CommunityID: communityID, UserID: userID, Username: username, Content: content}
	return f.posted, nil
}

func (f *fakeCommunities) DeleteMessage(_ context.Context, _, _, _ string) error {
	return f.err
}

func communityRouter(repo *fakeCommunities, users services.UserFinder, userID string) http.Handler {
	h := NewCommunityHandler(repo, users, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/community", h.List)
	r.Post("/api/community", h.Create)
	r.Post("/api/community/{id}/join", h.Join)
	r.Post("/api/community/{id}/leave", h.Leave)
	r.Get("/api/community/{id}/messages", h.Messages)
	r.Post("/api/community/{id}/messages", h.PostMessage)
	r.Delete("/api/community/{id}/messages/{messageId}", h.DeleteMessage)
	return asUser(userID, r)
}

type staticUsers map[string]models.User

func (s staticUsers) FindActiveByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return &u, nil
}

func TestCommunityMembershipFlow(t *testing.T) {
	repo := &fakeCommunities{members: map[string]bool{}}
	users := staticUsers{"alice": {Name: "Alice"}}
	h := communityRouter(repo, users, "alice")

	expectStatus(t, do(t, h, http.MethodGet, "/api/community/c1/messages", nil), http.StatusForbidden)
	expectStatus(t, do(t, h, http.MethodPost, "/api/community/c1/messages", ContentRequest{Content: "hello"}), http.StatusForbidden)

	expectStatus(t, do(t, h, http.MethodPost, "/api/community/c1/join", nil), http.StatusOK)

	rec := do(t, h, http.MethodPost, "/api/community/c1/messages", ContentRequest{Content: "hello"})
	expectStatus(t, rec, http.StatusCreated)
	if repo.posted.Username != "Alice" || repo.posted.CommunityID != "c1" {
		t.Errorf("posted: got %+v", repo.posted)
	}

	rec = do(t, h, http.MethodGet, "/api/community/c1/messages", nil)
	expectStatus(t, rec, http.StatusOK)
	if msgs, _ := decodeBody(t, rec)["messages"].([]interface{}); len(msgs) != 1 {
		t.Errorf("messages: got %v", msgs)
	}

	rec = do(t, h, http.MethodGet, "/api/community?category=anxiety", nil)
	expectStatus(t, rec, http.StatusOK)
	list, _ := decodeBody(t, rec)["communities"].([]interface{})
	if len(list) != 1 || list[0].(map[string]interface{})["is_member"] != true {
		t.Errorf("communities: got %v", list)
	}

	expectStatus(t, do(t, h, http.MethodPost, "/api/community/c1/leave", nil), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodGet, "/api/community/c1/messages", nil), http.StatusForbidden)
}

func TestCommunityErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		target string
		body   interface{}
		want   int
	}{
		{"duplicate name", services.ErrDuplicate, http.MethodPost, "/api/community", services.CommunityInput{Name: "Calm"}, http.StatusConflict},
		{"invalid input", services.ErrInvalidInput, http.MethodPost, "/api/community", services.CommunityInput{Name: "x"}, http.StatusBadRequest},
		{"unknown community", services.ErrNotFound, http.MethodPost, "/api/community/nope/join", nil, http.StatusNotFound},
		{"not author", services.ErrForbidden, http.MethodDelete, "/api/community/c1/messages/m1", nil, http.StatusForbidden},
		{"list failure", context.Canceled, http.MethodGet, "/api/community", nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeCommunities{err: tt.err, members: map[string]bool{}}
			rec := do(t, communityRouter(repo, staticUsers{}, "alice"), tt.method, tt.target, tt.body)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestPostMessage_UnknownAuthor(t *testing.T) {
	repo := &fakeCommunities{members: map[string]bool{"ghost": true}}
	rec := do(t, communityRouter(repo, staticUsers{}, "ghost"), http.MethodPost, "/api/community/c1/messages", ContentRequest{Content: "boo"})
	expectStatus(t, rec, http.StatusNotFound)
}
