package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
)

type countingFinder struct {
	users map[string]models.User
	calls int
}

func (f *countingFinder) FindActiveByID(_ context.Context, id string) (*models.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func TestCachedUserFinder_HitsCache(t *testing.T) {
	next := &countingFinder{users: map[string]models.User{"u1": {Name: "Ada"}}}
	f := NewCachedUserFinder(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := f.FindActiveByID(ctx, "u1")
		if err != nil {
			t.Fatalf("FindActiveByID: %v", err)
		}
		if u.Name != "Ada" {
			t.Errorf("Name: got %q", u.Name)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 backing lookup, got %d", next.calls)
	}
}

func TestCachedUserFinder_MissesNotCached(t *testing.T) {
	next := &countingFinder{users: map[string]models.User{}}
	f := NewCachedUserFinder(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.FindActiveByID(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("expected 2 backing lookups, got %d", next.calls)
	}
}

func TestCachedUserFinder_Invalidate(t *testing.T) {
	next := &countingFinder{users: map[string]models.User{"u1": {Name: "Ada"}}}
	f := NewCachedUserFinder(next, time.Minute)
	ctx := context.Background()

	_, _ = f.FindActiveByID(ctx, "u1")
	delete(next.users, "u1")
	f.Invalidate("u1")

	if _, err := f.FindActiveByID(ctx, "u1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after invalidate, got %v", err)
	}
}

func TestCachedUserFinder_ReturnsCopies(t *testing.T) {
	next := &countingFinder{users: map[string]models.User{"u1": {Name: "Ada"}}}
	f := NewCachedUserFinder(next, time.Minute)
	ctx := context.Background()

	u, _ := f.FindActiveByID(ctx, "u1")
	u.Name = "mutated"

	again, _ := f.FindActiveByID(ctx, "u1")
	if again.Name != "Ada" {
		t.Errorf("cached entry was mutated through a returned pointer: %q", again.Name)
	}
}
