package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// ConnectRedis connects to Redis and publishes the client as RedisClient.
// The presence registry, the recent-message cache and the HTTP rate limiter
// all share it.
func ConnectRedis(redisURI string) error {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return err
	}

	// Pool and timeouts tuned for short presence and cache commands
	opt.PoolSize = 10                     // shared by presence, chat cache and rate limits
	opt.MinIdleConns = 5                  // keep warm connections for reconnect bursts
	opt.MaxRetries = 3                    // retry failed commands up to 3 times
	opt.DialTimeout = 5 * time.Second     // timeout for establishing a connection
	opt.ReadTimeout = 3 * time.Second     // timeout for read operations
	opt.WriteTimeout = 3 * time.Second    // timeout for write operations
	opt.PoolTimeout = 4 * time.Second     // timeout for getting a connection from the pool
	opt.ConnMaxIdleTime = 5 * time.Minute // close idle connections after 5 minutes

	client := redis.NewClient(opt)

	// Test connection; a client that cannot ping is closed, not published.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	RedisClient = client
	return nil
}

// DisconnectRedis closes the Redis connection
func DisconnectRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
