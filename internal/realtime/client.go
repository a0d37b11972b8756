package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// CloseUnauthorized is the close code sent after a rejected handshake.
const CloseUnauthorized = 4401

// Client is one authenticated socket. Its send channel is written and closed
// only by the hub goroutine.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	id       string
	identity Identity
	limiter  *rate.Limiter
	log      *zap.Logger

	connectedAt time.Time
	rooms       map[string]struct{} // hub-owned
}

// inbound is a frame read from a client, or a read-side failure to report to it.
type inbound struct {
	client *Client
	env    Envelope
	err    string
}

func newClient(h *Hub, conn *websocket.Conn, id string, identity Identity) *Client {
	return &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		identity:    identity,
		limiter:     rate.NewLimiter(rate.Limit(h.cfg.EventRate), h.cfg.EventBurst),
		log:         h.log.With(zap.String("socket_id", id), zap.String("user_id", identity.ID)),
		connectedAt: time.Now().UTC(),
		rooms:       make(map[string]struct{}),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		msg := inbound{client: c}
		switch {
		case !c.limiter.Allow():
			msg.err = "rate limit exceeded"
		case json.Unmarshal(raw, &msg.env) != nil || msg.env.Event == "":
			msg.err = "malformed event"
		}

		if !c.hub.dispatch(msg) {
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Info("socket frame exceeded limit", zap.Int("max_bytes", maxMessageSize))
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug("socket closed unexpectedly", zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) activity(roomID string) RoomActivity {
	return RoomActivity{UserID: c.identity.ID, Username: c.identity.Name, RoomID: roomID}
}

func (c *Client) session() Session {
	return Session{
		UserID:      c.identity.ID,
		SocketID:    c.id,
		Name:        c.identity.Name,
		Avatar:      c.identity.Avatar,
		ConnectedAt: c.connectedAt,
		LastSeen:    c.connectedAt,
	}
}
