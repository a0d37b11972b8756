package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultPresencePrefix = "presence:"

// RedisPresenceStore keeps the registry in Redis: a set of online user ids
// plus one hash per user mapping socket id to the JSON session.
type RedisPresenceStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisPresenceStore creates a store whose keys start with prefix
// ("presence:" when empty).
func NewRedisPresenceStore(rdb *redis.Client, prefix string) *RedisPresenceStore {
	if prefix == "" {
		prefix = defaultPresencePrefix
	}
	return &RedisPresenceStore{rdb: rdb, prefix: prefix}
}

func (r *RedisPresenceStore) onlineKey() string {
	return r.prefix + "online"
}

func (r *RedisPresenceStore) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

func (r *RedisPresenceStore) Set(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.userKey(s.UserID), s.SocketID, data)
		pipe.SAdd(ctx, r.onlineKey(), s.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence set: %w", err)
	}
	return nil
}

func (r *RedisPresenceStore) Remove(ctx context.Context, userID, socketID string) (int, error) {
	var remaining *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.userKey(userID), socketID)
		remaining = pipe.HLen(ctx, r.userKey(userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("presence remove: %w", err)
	}

	n := int(remaining.Val())
	if n == 0 {
		if err := r.rdb.SRem(ctx, r.onlineKey(), userID).Err(); err != nil {
			return 0, fmt.Errorf("presence remove: %w", err)
		}
	}
	return n, nil
}

func (r *RedisPresenceStore) Sessions(ctx context.Context, userID string) ([]Session, error) {
	raw, err := r.rdb.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence sessions: %w", err)
	}
	out := make([]Session, 0, len(raw))
	for _, v := range raw {
		var s Session
		if json.Unmarshal([]byte(v), &s) != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisPresenceStore) List(ctx context.Context) ([]OnlineUser, error) {
	ids, err := r.rdb.SMembers(ctx, r.onlineKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}

	out := make([]OnlineUser, 0, len(ids))
	for _, id := range ids {
		sessions, err := r.Sessions(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			continue
		}
		byID := make(map[string]Session, len(sessions))
		for _, s := range sessions {
			byID[s.SocketID] = s
		}
		out = append(out, onlineUserFrom(id, byID))
	}
	sortOnline(out)
	return out, nil
}

// Reset removes every key written by this store. Used at startup so a crashed
// process does not leave users listed as online.
func (r *RedisPresenceStore) Reset(ctx context.Context) error {
	ids, err := r.rdb.SMembers(ctx, r.onlineKey()).Result()
	if err != nil {
		return fmt.Errorf("presence reset: %w", err)
	}
	keys := []string{r.onlineKey()}
	for _, id := range ids {
		keys = append(keys, r.userKey(id))
	}
	return r.rdb.Del(ctx, keys...).Err()
}
