package realtime

import (
	"reflect"
	"testing"
)

func TestRoomTracker_JoinIsIdempotent(t *testing.T) {
	rt := NewRoomTracker()

	if !rt.Join("alice", "s1", "general") {
		t.Fatal("first join should report first")
	}
	if rt.Join("alice", "s1", "general") {
		t.Error("repeated join from the same socket should not report first")
	}
	if rt.Join("alice", "s2", "general") {
		t.Error("second tab joining should not report first")
	}
	if got := rt.Rooms("alice"); !reflect.DeepEqual(got, []string{"general"}) {
		t.Errorf("Rooms: got %v", got)
	}
}

func TestRoomTracker_LeaveWaitsForLastSocket(t *testing.T) {
	rt := NewRoomTracker()
	rt.Join("alice", "s1", "general")
	rt.Join("alice", "s2", "general")

	if rt.Leave("alice", "s1", "general") {
		t.Error("user still has s2 in the room")
	}
	if rt.Leave("alice", "s1", "general") {
		t.Error("leaving twice should report false")
	}
	if !rt.Leave("alice", "s2", "general") {
		t.Error("last socket leaving should report true")
	}
	if rt.Len() != 0 {
		t.Errorf("tracker should be empty, has %d users", rt.Len())
	}
	if rt.Leave("bob", "s9", "general") {
		t.Error("leaving a room never joined should report false")
	}
}

func TestRoomTracker_DropSocket(t *testing.T) {
	rt := NewRoomTracker()
	for _, room := range []string{"C", "A", "B"} {
		rt.Join("alice", "s1", room)
	}
	rt.Join("alice", "s2", "B")
	rt.Join("bob", "s3", "A")

	left := rt.DropSocket("alice", "s1")
	if !reflect.DeepEqual(left, []string{"A", "C"}) {
		t.Errorf("DropSocket: got %v, want [A C]", left)
	}
	if got := rt.Rooms("alice"); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("alice should still be in B via s2, got %v", got)
	}

	if left := rt.DropSocket("alice", "s2"); !reflect.DeepEqual(left, []string{"B"}) {
		t.Errorf("DropSocket s2: got %v", left)
	}
	if rt.Len() != 1 {
		t.Errorf("only bob should remain, got %d users", rt.Len())
	}
	if left := rt.DropSocket("nobody", "s0"); len(left) != 0 {
		t.Errorf("unknown socket: got %v", left)
	}
}
