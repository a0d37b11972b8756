package services

import (
	"context"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
)

// ChatService combines durable message storage with the Redis recent cache.
type ChatService struct {
	store *MessageStore
	cache *RecentCache
}

func NewChatService(store *MessageStore, cache *RecentCache) *ChatService {
	return &ChatService{store: store, cache: cache}
}

func (s *ChatService) Send(ctx context.Context, senderID, receiverID, content string, kind models.MessageType) (models.Message, error) {
	msg, err := s.store.Create(ctx, senderID, receiverID, content, kind)
	if err != nil {
		return models.Message{}, err
	}
	s.cache.Push(ctx, msg)
	return msg, nil
}

// History serves the first page from cache when possible and falls back to Mongo.
func (s *ChatService) History(ctx context.Context, userID, otherID string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	conversationID := ConversationID(userID, otherID)

	if before == nil && limit <= chatRecentMaxLen {
		if cached, ok := s.cache.Get(ctx, conversationID); ok {
			page, hasMore := tail(cached, limit)
			return page, hasMore, nil
		}
	}

	msgs, hasMore, err := s.store.ListConversation(ctx, userID, otherID, before, limit)
	if err != nil {
		return nil, false, err
	}
	if before == nil && limit == chatRecentMaxLen {
		s.cache.Warm(ctx, conversationID, msgs)
	}
	return msgs, hasMore, nil
}

// tail returns the newest limit messages of an oldest-first cached list. A
// full cache may have older messages behind it in Mongo.
func tail(cached []models.Message, limit int64) ([]models.Message, bool) {
	n := int64(len(cached))
	if n > limit {
		return cached[n-limit:], true
	}
	return cached, n == chatRecentMaxLen
}

func (s *ChatService) Edit(ctx context.Context, id, userID, content string) (*models.Message, error) {
	m, err := s.store.Edit(ctx, id, userID, content)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, m.ConversationID)
	return m, nil
}

func (s *ChatService) Delete(ctx context.Context, id, userID string) (*models.Message, error) {
	m, err := s.store.SoftDelete(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, m.ConversationID)
	return m, nil
}

func (s *ChatService) React(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	m, err := s.store.ToggleReaction(ctx, id, userID, emoji)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, m.ConversationID)
	return m, nil
}

func (s *ChatService) MarkRead(ctx context.Context, userID, otherID string) (int64, error) {
	n, err := s.store.MarkConversationRead(ctx, userID, otherID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Invalidate(ctx, ConversationID(userID, otherID))
	}
	return n, nil
}
