package realtime

import "sort"

// RoomTracker records which rooms each user occupies and through which
// sockets. A user is in a room while at least one of their sockets is.
// It is owned by the hub goroutine and is not safe for concurrent use.
type RoomTracker struct {
	users map[string]map[string]map[string]struct{} // user -> room -> sockets
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{users: make(map[string]map[string]map[string]struct{})}
}

// Join adds socketID to roomID and reports whether this is the user's first
// socket in the room.
func (t *RoomTracker) Join(userID, socketID, roomID string) bool {
	rooms, ok := t.users[userID]
	if !ok {
		rooms = make(map[string]map[string]struct{})
		t.users[userID] = rooms
	}
	sockets, ok := rooms[roomID]
	if !ok {
		sockets = make(map[string]struct{})
		rooms[roomID] = sockets
	}
	first := len(sockets) == 0
	sockets[socketID] = struct{}{}
	return first
}

// Leave removes socketID from roomID and reports whether the user no longer
// occupies the room. Leaving a room the socket never joined reports false.
func (t *RoomTracker) Leave(userID, socketID, roomID string) bool {
	rooms := t.users[userID]
	sockets, ok := rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := sockets[socketID]; !ok {
		return false
	}
	delete(sockets, socketID)
	if len(sockets) > 0 {
		return false
	}
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(t.users, userID)
	}
	return true
}

// DropSocket removes socketID from every room and returns, sorted, the rooms
// the user no longer occupies as a result.
func (t *RoomTracker) DropSocket(userID, socketID string) []string {
	var left []string
	for roomID, sockets := range t.users[userID] {
		if _, ok := sockets[socketID]; !ok {
			continue
		}
		delete(sockets, socketID)
		if len(sockets) == 0 {
			delete(t.users[userID], roomID)
			left = append(left, roomID)
		}
	}
	if len(t.users[userID]) == 0 {
		delete(t.users, userID)
	}
	sort.Strings(left)
	return left
}

// Rooms returns the rooms userID occupies, sorted.
func (t *RoomTracker) Rooms(userID string) []string {
	out := make([]string, 0, len(t.users[userID]))
	for roomID := range t.users[userID] {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of users that occupy at least one room.
func (t *RoomTracker) Len() int {
	return len(t.users)
}
