package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// OAuthStateStore keeps single-use OAuth state nonces. A state is valid for
// one callback within the TTL, then gone.
type OAuthStateStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewOAuthStateStore(client *redisv9.Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

func (s *OAuthStateStore) Save(ctx context.Context, state string) error {
	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save oauth state failed: %w", err)
	}
	return nil
}

// Consume deletes the state and reports whether it existed.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (bool, error) {
	deleted, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return false, fmt.Errorf("redis consume oauth state failed: %w", err)
	}
	return deleted > 0, nil
}

func (s *OAuthStateStore) key(state string) string {
	return "oauth:state:" + state
}
