package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	chatRecentKeyPrefix = "chat:conversation:"
	chatRecentKeySuffix = ":recent"
	chatRecentMaxLen    = 50
	chatRecentTTL       = 1 * time.Hour
)

func chatRecentKey(conversationID string) string {
	return chatRecentKeyPrefix + conversationID + chatRecentKeySuffix
}

// RecentCache keeps the newest messages of each conversation in a Redis list
// (newest at head). A nil client turns every call into a miss.
type RecentCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRecentCache(rdb *redis.Client, logger *zap.Logger) *RecentCache {
	return &RecentCache{rdb: rdb, log: logger}
}

// Push adds a message to the recent cache. LPUSH + LTRIM keeps the last 50.
func (c *RecentCache) Push(ctx context.Context, msg models.Message) {
	if c.rdb == nil {
		return
	}
	exists, err := c.rdb.Exists(ctx, chatRecentKey(msg.ConversationID)).Result()
	if err != nil || exists == 0 {
		// A cold list must be warmed from Mongo first, otherwise it would
		// serve a partial page as if it were complete.
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	key := chatRecentKey(msg.ConversationID)
	pipe := c.rdb.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("chat cache push failed", zap.Error(err), zap.String("conversation_id", msg.ConversationID))
	}
}

// Get returns the cached messages oldest-first. Returns (nil, false) on miss.
func (c *RecentCache) Get(ctx context.Context, conversationID string) ([]models.Message, bool) {
	if c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.LRange(ctx, chatRecentKey(conversationID), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	msgs := make([]models.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.Message
		if json.Unmarshal([]byte(raw[i]), &m) != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// Warm stores an oldest-first page in the cache.
func (c *RecentCache) Warm(ctx context.Context, conversationID string, msgs []models.Message) {
	if c.rdb == nil || len(msgs) == 0 {
		return
	}

	key := chatRecentKey(conversationID)
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, key)
	for i := len(msgs) - 1; i >= 0; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("chat cache warm failed", zap.Error(err), zap.String("conversation_id", conversationID))
	}
}

// Invalidate drops the cached page after an edit, delete or reaction.
func (c *RecentCache) Invalidate(ctx context.Context, conversationID string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, chatRecentKey(conversationID)).Err(); err != nil {
		c.log.Warn("chat cache invalidate failed", zap.Error(err), zap.String("conversation_id", conversationID))
	}
}
