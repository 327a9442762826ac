package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTouchInterval = time.Minute

// TouchThrottle allows one last-used write per credential per interval across
// all replicas.
// Key format: touch:<credential_id>
type TouchThrottle struct {
	client   *redis.Client
	interval time.Duration
}

// NewTouchThrottle creates a TouchThrottle wrapping the given Redis client.
func NewTouchThrottle(client *redis.Client, interval time.Duration) *TouchThrottle {
	if interval <= 0 {
		interval = defaultTouchInterval
	}
	return &TouchThrottle{client: client, interval: interval}
}

// Allow reports whether this replica should write the credential's last-used
// time now. The first caller in each interval wins.
func (t *TouchThrottle) Allow(ctx context.Context, credentialID string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(credentialID), "1", t.interval).Result()
	if err != nil {
		return false, fmt.Errorf("touch throttle: %w", err)
	}
	return ok, nil
}

func (t *TouchThrottle) key(credentialID string) string {
	return "touch:" + credentialID
}
