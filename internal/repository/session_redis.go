package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/model"
)

// swapScript compares the stored fingerprint against the expected one and
// replaces it only on a match. A successful swap restarts the key's expiry
// at the full refresh TTL, since the rotated credential carries a fresh exp.
// Running it as a single Lua script makes the compare-and-swap atomic on
// the Redis side.
const swapScript = `
local current = redis.call("GET", KEYS[1])
if current == false or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var swapLua = redis.NewScript(swapScript)

// RedisSessionStore keeps the refresh fingerprint under refresh:{userID}
// with the refresh TTL as key expiry, so abandoned sessions age out on
// their own.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) key(userID string) string {
	return "refresh:" + userID
}

func (s *RedisSessionStore) Get(ctx context.Context, userID string) (string, error) {
	fingerprint, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get refresh session: %w", err)
	}
	return fingerprint, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, userID string, fingerprint string) error {
	if err := s.client.Set(ctx, s.key(userID), fingerprint, s.ttl).Err(); err != nil {
		return fmt.Errorf("put refresh session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Swap(ctx context.Context, userID string, expected string, next string) (bool, error) {
	res, err := swapLua.Run(ctx, s.client, []string{s.key(userID)}, expected, next, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("swap refresh session: %w", err)
	}
	return res == 1, nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("clear refresh session: %w", err)
	}
	return nil
}
