package realtime

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Session is one authenticated socket of a user.
type Session struct {
	UserID      string    `json:"userId"`
	SocketID    string    `json:"socketId"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeen    time.Time `json:"lastSeen"`
}

// OnlineUser is one entry of the online_users snapshot.
type OnlineUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// PresenceStore is the registry of connected users. A user stays listed
// while at least one of their sessions is stored.
type PresenceStore interface {
	Set(ctx context.Context, s Session) error
	// Remove deletes one session and reports how many sessions the user has left.
	Remove(ctx context.Context, userID, socketID string) (int, error)
	Sessions(ctx context.Context, userID string) ([]Session, error)
	List(ctx context.Context) ([]OnlineUser, error)
}

// sortOnline orders a snapshot by name, then id, so every client renders the same list.
func sortOnline(users []OnlineUser) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}

// MemoryPresenceStore keeps the registry in process memory.
type MemoryPresenceStore struct {
	mu    sync.RWMutex
	users map[string]map[string]Session
}

func NewMemoryPresenceStore() *MemoryPresenceStore {
	return &MemoryPresenceStore{users: make(map[string]map[string]Session)}
}

func (m *MemoryPresenceStore) Set(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.users[s.UserID]
	if !ok {
		sessions = make(map[string]Session)
		m.users[s.UserID] = sessions
	}
	sessions[s.SocketID] = s
	return nil
}

func (m *MemoryPresenceStore) Remove(_ context.Context, userID, socketID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.users[userID]
	if !ok {
		return 0, nil
	}
	delete(sessions, socketID)
	if len(sessions) == 0 {
		delete(m.users, userID)
		return 0, nil
	}
	return len(sessions), nil
}

func (m *MemoryPresenceStore) Sessions(_ context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.users[userID]))
	for _, s := range m.users[userID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out, nil
}

func (m *MemoryPresenceStore) List(_ context.Context) ([]OnlineUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OnlineUser, 0, len(m.users))
	for userID, sessions := range m.users {
		out = append(out, onlineUserFrom(userID, sessions))
	}
	sortOnline(out)
	return out, nil
}

// onlineUserFrom uses the most recent session, so a renamed user shows their
// latest name once they reconnect.
func onlineUserFrom(userID string, sessions map[string]Session) OnlineUser {
	var latest Session
	for _, s := range sessions {
		if latest.SocketID == "" || s.ConnectedAt.After(latest.ConnectedAt) {
			latest = s
		}
	}
	return OnlineUser{ID: userID, Name: latest.Name, Avatar: latest.Avatar}
}
