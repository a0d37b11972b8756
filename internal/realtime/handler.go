package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandlerConfig configures the socket endpoint.
type HandlerConfig struct {
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
}

// Handler upgrades GET /ws/chat, authenticates the socket and hands it to the hub.
type Handler struct {
	hub      *Hub
	auth     *Authenticator
	timeout  time.Duration
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(hub *Hub, auth *Authenticator, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	origins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	return &Handler{
		hub:     hub,
		auth:    auth,
		timeout: cfg.HandshakeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), origins, allowAll)
			},
		},
		log: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		identity Identity
		authed   bool
	)

	// Browser clients may pass the token in the URL; a bad one is refused
	// before the upgrade.
	if token := r.URL.Query().Get("token"); token != "" {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		id, err := h.auth.Authenticate(ctx, token)
		cancel()
		if err != nil {
			h.rejected(err, r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": clientMessage(err),
			})
			return
		}
		identity, authed = id, true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("socket upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}

	if !authed {
		identity, err = h.handshake(conn)
		if err != nil {
			h.rejected(err, r.RemoteAddr)
			reject(conn, err)
			return
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, encode(EventAuthenticated, identity)); err != nil {
		_ = conn.Close()
		return
	}
	_ = conn.SetWriteDeadline(time.Time{})

	if !h.hub.join(newClient(h.hub, conn, uuid.NewString(), identity)) {
		_ = conn.Close()
	}
}

// handshake waits for the authenticate frame.
func (h *Handler) handshake(conn *websocket.Conn) (Identity, error) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.timeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return Identity{}, ErrNoCredentials
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event != EventAuthenticate {
		return Identity{}, ErrNoCredentials
	}
	var p authenticatePayload
	if len(env.Data) == 0 {
		return Identity{}, ErrNoCredentials
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return Identity{}, ErrNoCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.auth.Authenticate(ctx, p.Token)
}

func (h *Handler) rejected(err error, remoteAddr string) {
	reason := rejectionReason(err)
	h.hub.metrics.HandshakeRejections.WithLabelValues(reason).Inc()
	if reason == "lookup_failed" {
		h.log.Error("socket handshake failed", zap.Error(err), zap.String("remote_addr", remoteAddr))
		return
	}
	h.log.Info("socket handshake rejected", zap.String("reason", reason), zap.String("remote_addr", remoteAddr))
}

// reject tells the peer why and closes with CloseUnauthorized. No hub state
// exists for the socket at this point.
func reject(conn *websocket.Conn, err error) {
	msg := clientMessage(err)
	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.TextMessage, encode(EventConnectError, ErrorPayload{Message: msg}))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(CloseUnauthorized, msg), deadline)
	_ = conn.Close()
}

func normalizeOrigins(origins []string) (map[string]struct{}, bool) {
	out := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
			continue
		}
		if n, ok := normalizeOrigin(o); ok {
			out[n] = struct{}{}
		}
	}
	return out, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

// originAllowed accepts requests without an Origin header, which only
// non-browser clients send.
func originAllowed(origin string, allowed map[string]struct{}, allowAll bool) bool {
	if origin == "" || allowAll {
		return true
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, ok = allowed[n]
	return ok
}
