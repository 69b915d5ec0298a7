package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicore/internal/identity"
	"clinicore/pkg/platform/sentinel"
)

const keyPrefix = "login-session:"

// RedisStore persists login sessions in Redis with a TTL matching the token
// lifetime. Reads after writes hit the same keyspace, which gives the
// resolver read-your-writes on logout.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, session identity.LoginSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal login session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.JTI, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store login session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jti string) (*identity.LoginSession, error) {
	payload, err := s.client.Get(ctx, keyPrefix+jti).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("login session %s: %w", jti, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch login session: %w", err)
	}

	var session identity.LoginSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode login session: %w", sentinel.ErrCorrupt)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, jti string) error {
	if err := s.client.Del(ctx, keyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("delete login session: %w", err)
	}
	return nil
}
