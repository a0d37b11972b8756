package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glowspace/glowspace-backend/internal/services"
)

// Handshake errors. Their messages are sent to the client verbatim.
var (
	ErrNoCredentials      = errors.New("no credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = errors.New("unknown user")
)

// TokenVerifier resolves a bearer token to the id of the user it was issued to.
type TokenVerifier interface {
	UserIDFromToken(token string) (string, error)
}

// Authenticator turns a handshake token into an Identity.
type Authenticator struct {
	tokens TokenVerifier
	users  services.UserFinder
}

func NewAuthenticator(tokens TokenVerifier, users services.UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies token and loads the active user it names.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoCredentials
	}

	userID, err := a.tokens.UserIDFromToken(token)
	if err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	u, err := a.users.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return Identity{}, ErrUnknownUser
		}
		return Identity{}, fmt.Errorf("lookup user %s: %w", userID, err)
	}

	return Identity{
		ID:     u.ID.Hex(),
		Name:   u.Name,
		Avatar: u.Avatar,
	}, nil
}

// rejectionReason labels a handshake error for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	default:
		return "lookup_failed"
	}
}

// clientMessage is what the peer is told about a rejected handshake.
// Lookup failures are not leaked.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnknownUser):
		return err.Error()
	default:
		return "authentication unavailable"
	}
}
