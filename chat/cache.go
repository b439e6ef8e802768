package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Horizonnns/vue-chat-server/utils"
)

const (
	presenceKeyPrefix = "presence:"
	onlineSetKey      = "online_users"
)

type cachedPresence struct {
	UserID   int64      `json:"user_id"`
	SocketID string     `json:"socket_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen"`
}

// PresenceCache mirrors presence transitions into Redis with a TTL so other
// services can read who is online without talking to this process. The
// mirror is advisory: every write is fire-and-forget and the in-memory
// registry stays the source of truth.
type PresenceCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *utils.Logger
}

func NewPresenceCache(client *redis.Client, ttl time.Duration, logger *utils.Logger) *PresenceCache {
	return &PresenceCache{
		redis:  client,
		ttl:    ttl,
		logger: logger.With("component", "presence_cache"),
	}
}

// RefreshInterval is how often online entries must be rewritten to keep
// their TTL from lapsing mid-session.
func (c *PresenceCache) RefreshInterval() time.Duration {
	return c.ttl / 2
}

// SetOnline writes the presence entry and adds the user to the online set.
func (c *PresenceCache) SetOnline(ctx context.Context, userID int64, status UserStatus) error {
	entry := cachedPresence{
		UserID:   userID,
		SocketID: status.SocketID,
		Status:   "online",
		LastSeen: status.LastSeen,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal presence entry: %w", err)
	}

	key := fmt.Sprintf("%s%d", presenceKeyPrefix, userID)

	pipe := c.redis.Pipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, onlineSetKey, userID)
	pipe.Expire(ctx, onlineSetKey, c.ttl*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror presence: %w", err)
	}
	return nil
}

// SetOffline drops the presence entry and removes the user from the online
// set.
func (c *PresenceCache) SetOffline(ctx context.Context, userID int64) error {
	key := fmt.Sprintf("%s%d", presenceKeyPrefix, userID)

	pipe := c.redis.Pipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, onlineSetKey, userID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear presence: %w", err)
	}
	return nil
}
