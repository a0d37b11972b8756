package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/glowspace/glowspace-backend/internal/middleware"
	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/glowspace/glowspace-backend/internal/services"
	"github.com/glowspace/glowspace-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserRepository is the subset of services.UserStore the auth handlers need.
type UserRepository interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Users  UserRepository
	Tokens TokenIssuer
	Log    *zap.Logger
}

func NewAuthHandler(users UserRepository, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, Log: logger}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	Token     string             `json:"token,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	User      *models.PublicUser `json:"user,omitempty"`
}

// Signup handles user registration
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	for _, err := range []error{
		utils.ValidateName(req.Name),
		utils.ValidateEmail(req.Email),
		utils.ValidatePassword(req.Password),
	} {
		if err != nil {
			writeServiceError(w, err, "")
			return
		}
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		h.Log.Error("failed to hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user, err := h.Users.Create(r.Context(), models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: hashed,
		Avatar:   strings.TrimSpace(req.Avatar),
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			writeError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		h.Log.Error("failed to create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.respondWithToken(w, http.StatusCreated, "Account created successfully", &user)
}

// Signin handles user login
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.Log.Error("failed to load user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	ok, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "This account has been deactivated")
		return
	}

	now := time.Now().UTC()
	if err := h.Users.UpdateLastLogin(r.Context(), user.ID, now); err != nil {
		h.Log.Warn("failed to update last login", zap.Error(err), zap.String("user_id", user.ID.Hex()))
	} else {
		user.LastLogin = &now
	}

	h.respondWithToken(w, http.StatusOK, "Signed in successfully", user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.FindByID(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.Log.Error("failed to load user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	pub := user.Public()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    pub,
	})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, message string, user *models.User) {
	token, expiresAt, err := h.Tokens.Issue(user.ID.Hex())
	if err != nil {
		h.Log.Error("failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	pub := user.Public()
	writeJSON(w, status, AuthResponse{
		Success:   true,
		Message:   message,
		Token:     token,
		ExpiresAt: &expiresAt,
		User:      &pub,
	})
}
