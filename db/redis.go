package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Horizonnns/vue-chat-server/config"
)

// NewRedisClient connects to Redis for the presence mirror. Callers treat
// Redis as optional; a nil client simply disables the mirror.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DB = cfg.RedisDB

	client := redis.NewClient(opt)

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
