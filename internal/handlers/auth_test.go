package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/glowspace/glowspace-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	logins  map[primitive.ObjectID]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*models.User),
		logins:  make(map[primitive.ObjectID]time.Time),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = services.NormalizeEmail(u.Email)
	if _, ok := f.byEmail[u.Email]; ok {
		return models.User{}, services.ErrDuplicate
	}
	u.ID = primitive.NewObjectID()
	u.IsActive = true
	stored := u
	f.byEmail[u.Email] = &stored
	return u, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[services.NormalizeEmail(email)]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID.Hex() == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins[id] = at
	return nil
}

func (f *fakeUserRepo) add(t *testing.T, name, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{ID: primitive.NewObjectID(), Name: name, Email: email, Password: hash, IsActive: active}
	f.mu.Lock()
	f.byEmail[email] = u
	f.mu.Unlock()
	return u
}

func newAuthFixture() (*AuthHandler, *fakeUserRepo, *services.TokenService) {
	repo := newFakeUserRepo()
	tokens := services.NewTokenService(services.TokenConfig{Secret: "handler-secret", Issuer: "glowspace-test", TTL: time.Hour})
	return NewAuthHandler(repo, tokens, zap.NewNop()), repo, tokens
}

func TestSignup(t *testing.T) {
	h, _, tokens := newAuthFixture()

	rec := do(t, http.HandlerFunc(h.Signup), http.MethodPost, "/api/auth/signup", SignupRequest{
		Name:     "Maya",
		Email:    "Maya@Example.com",
		Password: "correct horse",
	})
	expectStatus(t, rec, http.StatusCreated)

	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	user, _ := body["user"].(map[string]interface{})
	if token == "" || user == nil {
		t.Fatalf("expected token and user, got %v", body)
	}
	if user["email"] != "maya@example.com" {
		t.Errorf("email: got %v", user["email"])
	}
	if _, ok := user["password"]; ok {
		t.Error("password must not be serialised")
	}
	id, err := tokens.UserIDFromToken(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id != user["id"] {
		t.Errorf("token subject %q, user id %v", id, user["id"])
	}
}

func TestSignup_Rejections(t *testing.T) {
	h, repo, _ := newAuthFixture()
	repo.add(t, "Existing", "taken@example.com", "password123", true)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"short name", SignupRequest{Name: "A", Email: "a@example.com", Password: "password123"}, http.StatusBadRequest},
		{"bad email", SignupRequest{Name: "Ana", Email: "not-an-email", Password: "password123"}, http.StatusBadRequest},
		{"short password", SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "short"}, http.StatusBadRequest},
		{"duplicate", SignupRequest{Name: "Ana", Email: "TAKEN@example.com", Password: "password123"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, http.HandlerFunc(h.Signup), http.MethodPost, "/api/auth/signup", tt.body)
			expectStatus(t, rec, tt.want)
			if decodeBody(t, rec)["success"] != false {
				t.Error("expected success=false")
			}
		})
	}
}

func TestSignin(t *testing.T) {
	h, repo, _ := newAuthFixture()
	u := repo.add(t, "Maya", "maya@example.com", "password123", true)
	repo.add(t, "Gone", "gone@example.com", "password123", false)

	tests := []struct {
		name string
		req  SigninRequest
		want int
	}{
		{"ok", SigninRequest{Email: " MAYA@example.com ", Password: "password123"}, http.StatusOK},
		{"wrong password", SigninRequest{Email: "maya@example.com", Password: "password124"}, http.StatusUnauthorized},
		{"unknown email", SigninRequest{Email: "nobody@example.com", Password: "password123"}, http.StatusUnauthorized},
		{"missing fields", SigninRequest{Email: "maya@example.com"}, http.StatusBadRequest},
		{"deactivated", SigninRequest{Email: "gone@example.com", Password: "password123"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, http.HandlerFunc(h.Signin), http.MethodPost, "/api/auth/signin", tt.req)
			expectStatus(t, rec, tt.want)
		})
	}

	if _, ok := repo.logins[u.ID]; !ok {
		t.Error("successful signin should record last login")
	}
}

func TestMe(t *testing.T) {
	h, repo, _ := newAuthFixture()
	u := repo.add(t, "Maya", "maya@example.com", "password123", true)

	rec := do(t, asUser(u.ID.Hex(), http.HandlerFunc(h.Me)), http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, rec, http.StatusOK)
	user, _ := decodeBody(t, rec)["user"].(map[string]interface{})
	if user["name"] != "Maya" {
		t.Errorf("name: got %v", user["name"])
	}

	rec = do(t, asUser(primitive.NewObjectID().Hex(), http.HandlerFunc(h.Me)), http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, rec, http.StatusNotFound)
}
