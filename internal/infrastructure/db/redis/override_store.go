package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OverrideStore keeps active-workspace overrides in Redis so every replica
// sees the same choice.
// Key format: override:<identity_id>
type OverrideStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOverrideStore creates an OverrideStore. A ttl of zero keeps overrides
// until they are cleared.
func NewOverrideStore(client *redis.Client, ttl time.Duration) *OverrideStore {
	return &OverrideStore{client: client, ttl: ttl}
}

func (s *OverrideStore) Get(ctx context.Context, identityID string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get override: %w", err)
	}
	return v, true, nil
}

func (s *OverrideStore) Set(ctx context.Context, identityID, workspaceID string) error {
	if err := s.client.Set(ctx, s.key(identityID), workspaceID, s.ttl).Err(); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

func (s *OverrideStore) Clear(ctx context.Context, identityID string) error {
	if err := s.client.Del(ctx, s.key(identityID)).Err(); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}
	return nil
}

func (s *OverrideStore) key(identityID string) string {
	return "override:" + identityID
}
