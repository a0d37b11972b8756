package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"go.uber.org/zap"
)

func TestConversationID_IsSymmetric(t *testing.T) {
	if ConversationID("b", "a") != ConversationID("a", "b") {
		t.Fatal("ConversationID should not depend on argument order")
	}
	if got := ConversationID("64f1", "64f0"); got != "64f0:64f1" {
		t.Errorf("got %q", got)
	}
}

func TestValidateContent(t *testing.T) {
	if got, err := ValidateContent("  hello  "); err != nil || got != "hello" {
		t.Errorf("ValidateContent: got %q, %v", got, err)
	}
	if _, err := ValidateContent("   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank content, got %v", err)
	}
	if _, err := ValidateContent(strings.Repeat("a", maxMessageLength+1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for long content, got %v", err)
	}
}

func TestToggleReaction(t *testing.T) {
	now := time.Now()
	var reactions []models.Reaction

	reactions = ToggleReaction(reactions, "u1", "💙", now)
	reactions = ToggleReaction(reactions, "u2", "💙", now)
	if len(reactions) != 2 {
		t.Fatalf("expected 2 reactions, got %d", len(reactions))
	}

	reactions = ToggleReaction(reactions, "u1", "💙", now)
	if len(reactions) != 1 || reactions[0].UserID != "u2" {
		t.Fatalf("expected only u2's reaction to remain, got %+v", reactions)
	}

	reactions = ToggleReaction(reactions, "u2", "🌱", now)
	if len(reactions) != 2 {
		t.Fatalf("different emoji from same user should be kept, got %+v", reactions)
	}
}

func TestReverseMessages(t *testing.T) {
	msgs := []models.Message{{Content: "3"}, {Content: "2"}, {Content: "1"}}
	reverseMessages(msgs)
	if msgs[0].Content != "1" || msgs[2].Content != "3" {
		t.Errorf("unexpected order %v", msgs)
	}
}

func TestTail(t *testing.T) {
	msgs := make([]models.Message, 5)
	for i := range msgs {
		msgs[i].Content = string(rune('a' + i))
	}

	page, more := tail(msgs, 2)
	if len(page) != 2 || page[0].Content != "d" || !more {
		t.Errorf("tail(5, 2): got %v, %v", page, more)
	}
	page, more = tail(msgs, 10)
	if len(page) != 5 || more {
		t.Errorf("tail(5, 10): got %d messages, more=%v", len(page), more)
	}

	full := make([]models.Message, chatRecentMaxLen)
	if _, more := tail(full, chatRecentMaxLen); !more {
		t.Error("a full cache should report more history")
	}
}

func TestRecentCache_NilClientIsAMiss(t *testing.T) {
	c := NewRecentCache(nil, zap.NewNop())
	ctx := context.Background()

	c.Push(ctx, models.Message{ConversationID: "a:b"})
	c.Warm(ctx, "a:b", []models.Message{{ConversationID: "a:b"}})
	c.Invalidate(ctx, "a:b")
	if _, ok := c.Get(ctx, "a:b"); ok {
		t.Error("nil client should always miss")
	}
	if got := chatRecentKey("a:b"); got != "chat:conversation:a:b:recent" {
		t.Errorf("key: got %q", got)
	}
}
