package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const storeTimeout = 2 * time.Second

// HubConfig holds per-socket limits applied by the hub.
type HubConfig struct {
	EventRate  float64 // inbound events per second
	EventBurst int
}

// LastSeenRecorder queues a last-seen update without blocking.
type LastSeenRecorder interface {
	Record(userID string, at time.Time, online bool) bool
}

// HubStats is a point-in-time view of the hub's state.
type HubStats struct {
	Sockets     int
	Users       int
	RoomMembers int // users present in at least one room
}

// Hub owns every piece of gateway state: connected sockets, the transport
// room sets, the RoomTracker and the presence registry writes. Run processes
// one register, unregister or inbound event at a time.
type Hub struct {
	cfg      HubConfig
	presence PresenceStore
	lastSeen LastSeenRecorder
	metrics  *Metrics
	log      *zap.Logger

	clients  map[*Client]struct{}
	bySocket map[string]*Client
	byUser   map[string]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	tracker  *RoomTracker
	dropped  []*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	stats      chan chan HubStats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     waitGroup
}

func NewHub(cfg HubConfig, presence PresenceStore, lastSeen LastSeenRecorder, metrics *Metrics, logger *zap.Logger) *Hub {
	if cfg.EventRate <= 0 {
		cfg.EventRate = 20
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = 40
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg,
		presence:   presence,
		lastSeen:   lastSeen,
		metrics:    metrics,
		log:        logger,
		clients:    make(map[*Client]struct{}),
		bySocket:   make(map[string]*Client),
		byUser:     make(map[string]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		tracker:    NewRoomTracker(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		stats:      make(chan chan HubStats),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Presence returns the registry the hub writes to.
func (h *Hub) Presence() PresenceStore {
	return h.presence
}

// Run is the hub's event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return
		case c := <-h.register:
			h.connect(c)
		case c := <-h.unregister:
			h.disconnect(c)
		case msg := <-h.inbound:
			h.handle(msg)
		case reply := <-h.stats:
			reply <- HubStats{Sockets: len(h.clients), Users: len(h.byUser), RoomMembers: h.tracker.Len()}
		}
		h.flushDropped()
	}
}

// Stats asks the hub goroutine for its current counts.
func (h *Hub) Stats(ctx context.Context) (HubStats, error) {
	reply := make(chan HubStats, 1)
	select {
	case h.stats <- reply:
	case <-ctx.Done():
		return HubStats{}, ctx.Err()
	case <-h.ctx.Done():
		return HubStats{}, h.ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return HubStats{}, ctx.Err()
	}
}

// Shutdown stops the event loop, closes every socket and waits up to
// timeout for their pumps to exit.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	if !h.wg.waitTimeout(timeout) {
		h.log.Warn("hub shutdown timed out waiting for socket pumps", zap.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
	h.log.Info("hub stopped")
	return nil
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) dispatch(msg inbound) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) connect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	sockets := h.track(ctx, c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()

	c.log.Info("socket connected", zap.Int("user_sockets", sockets))
	h.broadcastOnline(ctx)
}

// track indexes c and registers its session. It returns how many sockets
// the user now has open.
func (h *Hub) track(ctx context.Context, c *Client) int {
	h.clients[c] = struct{}{}
	h.bySocket[c.id] = c
	sockets, ok := h.byUser[c.identity.ID]
	if !ok {
		sockets = make(map[*Client]struct{})
		h.byUser[c.identity.ID] = sockets
	}
	sockets[c] = struct{}{}
	h.metrics.Connections.Inc()

	if err := h.presence.Set(ctx, c.session()); err != nil {
		h.log.Error("failed to register presence", zap.Error(err), zap.String("user_id", c.identity.ID))
	}
	h.recordLastSeen(c.identity.ID, true)
	return len(sockets)
}

// disconnect removes c from every structure. Order matters to observers:
// user_left goes out to each room first, then the new online_users snapshot.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.bySocket, c.id)
	if sockets := h.byUser[c.identity.ID]; sockets != nil {
		delete(sockets, c)
		if len(sockets) == 0 {
			delete(h.byUser, c.identity.ID)
		}
	}
	for roomID := range c.rooms {
		h.removeFromRoom(c, roomID)
	}
	close(c.send)
	h.metrics.Connections.Dec()

	for _, roomID := range h.tracker.DropSocket(c.identity.ID, c.id) {
		h.toRoom(roomID, nil, encode(EventUserLeft, c.activity(roomID)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	remaining, err := h.presence.Remove(ctx, c.identity.ID, c.id)
	if err != nil {
		h.log.Error("failed to remove presence", zap.Error(err), zap.String("user_id", c.identity.ID))
		remaining = len(h.byUser[c.identity.ID])
	}
	h.broadcastOnline(ctx)

	if remaining == 0 {
		h.recordLastSeen(c.identity.ID, false)
	}
	c.log.Info("socket disconnected", zap.Int("user_sockets", remaining))
}

func (h *Hub) shutdownClients() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	n := len(h.clients)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		if _, err := h.presence.Remove(ctx, c.identity.ID, c.id); err != nil {
			h.log.Warn("failed to remove presence on shutdown", zap.Error(err), zap.String("user_id", c.identity.ID))
		}
	}
	for userID := range h.byUser {
		h.recordLastSeen(userID, false)
	}
	h.bySocket = make(map[string]*Client)
	h.byUser = make(map[string]map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.tracker = NewRoomTracker()
	h.metrics.Connections.Set(0)
	h.metrics.OnlineUsers.Set(0)
	h.log.Info("closed chat sockets", zap.Int("count", n))
}

func (h *Hub) handle(msg inbound) {
	c := msg.client
	if _, ok := h.clients[c]; !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("socket event handler panicked", zap.String("event", msg.env.Event), zap.Any("panic", r))
			h.sendError(c, "internal error")
		}
	}()

	if msg.err != "" {
		h.sendError(c, msg.err)
		return
	}

	event, data := msg.env.Event, msg.env.Data
	h.metrics.Events.WithLabelValues(eventLabel(event)).Inc()

	switch event {
	case EventJoinRoom:
		h.joinRoom(c, roomIDFrom(data))
	case EventLeaveRoom:
		h.leaveRoom(c, roomIDFrom(data))
	case EventTyping:
		h.relayActivity(c, data, EventUserTyping)
	case EventStopTyping:
		h.relayActivity(c, data, EventUserStopTyping)
	case EventSendPrivateMessage:
		h.sendPrivate(c, data)
	case EventPing:
		h.queue(c, encode(EventPong, data))
	case EventAuthenticate:
		h.sendError(c, "already authenticated")
	default:
		out, ok := roomRelays[event]
		if !ok {
			h.sendError(c, fmt.Sprintf("unknown event %q", event))
			return
		}
		roomID := roomIDFrom(data)
		if roomID == "" {
			h.sendError(c, "roomId is required")
			return
		}
		h.toRoom(roomID, c, encode(out, data))
	}
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
	c.rooms[roomID] = struct{}{}

	if h.tracker.Join(c.identity.ID, c.id, roomID) {
		h.toRoom(roomID, c, encode(EventUserJoined, c.activity(roomID)))
	}
}

func (h *Hub) leaveRoom(c *Client, roomID string) {
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}

	h.removeFromRoom(c, roomID)
	if h.tracker.Leave(c.identity.ID, c.id, roomID) {
		h.toRoom(roomID, c, encode(EventUserLeft, c.activity(roomID)))
	}
}

func (h *Hub) removeFromRoom(c *Client, roomID string) {
	delete(c.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) relayActivity(c *Client, data json.RawMessage, out string) {
	roomID := roomIDFrom(data)
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}
	h.toRoom(roomID, c, encode(out, c.activity(roomID)))
}

// sendPrivate delivers to every registered session of the receiver and
// acknowledges to the sending socket. An offline receiver is not an error.
// Sessions held by another process are skipped.
func (h *Hub) sendPrivate(c *Client, data json.RawMessage) {
	receiverID := receiverIDFrom(data)
	if receiverID == "" {
		h.sendError(c, "receiverId is required")
		return
	}
	if receiverID == c.identity.ID {
		h.sendError(c, "cannot send a private message to yourself")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	sessions, err := h.presence.Sessions(ctx, receiverID)
	if err != nil {
		c.log.Error("failed to load receiver sessions", zap.Error(err), zap.String("receiver_id", receiverID))
		h.sendError(c, "private message not delivered")
		return
	}

	msg := encode(EventNewPrivateMessage, data)
	for _, s := range sessions {
		if rc, ok := h.bySocket[s.SocketID]; ok {
			h.queue(rc, msg)
		}
	}
	h.queue(c, encode(EventPrivateMessageSent, data))
}

// toRoom sends msg to every socket in roomID except skip.
func (h *Hub) toRoom(roomID string, skip *Client, msg []byte) {
	for c := range h.rooms[roomID] {
		if c == skip {
			continue
		}
		h.queue(c, msg)
	}
}

func (h *Hub) broadcastOnline(ctx context.Context) {
	users, err := h.presence.List(ctx)
	if err != nil {
		h.log.Error("failed to list online users", zap.Error(err))
		return
	}
	h.metrics.OnlineUsers.Set(float64(len(users)))

	msg := encode(EventOnlineUsers, users)
	for c := range h.clients {
		h.queue(c, msg)
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.queue(c, encode(EventError, ErrorPayload{Message: message}))
}

// queue never blocks the hub. A socket that cannot keep up is scheduled for
// removal once the current event has been processed.
func (h *Hub) queue(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		for _, d := range h.dropped {
			if d == c {
				return
			}
		}
		h.dropped = append(h.dropped, c)
		h.metrics.DroppedSends.Inc()
		c.log.Warn("socket send queue full, dropping connection")
	}
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		c := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.disconnect(c)
		_ = c.conn.Close()
	}
}

func (h *Hub) recordLastSeen(userID string, online bool) {
	if h.lastSeen == nil {
		return
	}
	h.lastSeen.Record(userID, time.Now().UTC(), online)
}

type waitGroup struct {
	sync.WaitGroup
}

// waitTimeout reports whether the group finished within d.
func (wg *waitGroup) waitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
