package routes

import (
	"net/http"

	"github.com/glowspace/glowspace-backend/internal/handlers"
	"github.com/glowspace/glowspace-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Deps carries the handlers and shared services the routes are bound to.
type Deps struct {
	Tokens    middleware.TokenVerifier
	Auth      *handlers.AuthHandler
	Chat      *handlers.ChatHandler
	Community *handlers.CommunityHandler
	Presence  *handlers.PresenceHandler
	Socket    http.Handler
	Metrics   http.Handler
}

func SetupRoutes(r chi.Router, d Deps) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	// Socket gateway; authentication happens in the handshake
	r.Handle("/ws/chat", d.Socket)

	r.Post("/api/auth/signup", d.Auth.Signup)
	r.Post("/api/auth/signin", d.Auth.Signin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Tokens))

		r.Get("/api/auth/me", d.Auth.Me)

		// Direct messages (MongoDB history + Redis recent cache)
		r.Route("/api/chat", func(r chi.Router) {
			r.Use(middleware.ChatHistoryRateLimit)
			r.Post("/messages", d.Chat.SendMessage)
			r.Put("/messages/{id}", d.Chat.EditMessage)
			r.Delete("/messages/{id}", d.Chat.DeleteMessage)
			r.Post("/messages/{id}/reactions", d.Chat.ToggleReaction)
			r.Get("/conversations/{userId}", d.Chat.GetConversation)
			r.Put("/conversations/{userId}/read", d.Chat.MarkRead)
		})

		// Communities (PostgreSQL)
		r.Route("/api/community", func(r chi.Router) {
			r.Get("/", d.Community.List)
			r.Post("/", d.Community.Create)
			r.Post("/{id}/join", d.Community.Join)
			r.Post("/{id}/leave", d.Community.Leave)
			r.Get("/{id}/messages", d.Community.Messages)
			r.Post("/{id}/messages", d.Community.PostMessage)
			r.Delete("/{id}/messages/{messageId}", d.Community.DeleteMessage)
		})

		r.Get("/api/users/online", d.Presence.OnlineUsers)
	})
}
