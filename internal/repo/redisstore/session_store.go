package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/redis/go-redis/v9"
)

// SessionStore is the single-slot "current session" reference from the data
// model, keyed by JWT token ID so endSession can revoke a token before it
// expires.
type SessionStore interface {
	Put(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	Get(ctx context.Context, tokenID string) (string, error)
	Delete(ctx context.Context, tokenID string) error
}

type RedisSessionStore struct {
	client *redis.Client
}

func New(cfg config.RedisConfig) *RedisSessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisSessionStore{client: client}
}

func sessionKey(tokenID string) string { return "session:" + tokenID }

func (s *RedisSessionStore) Put(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(tokenID), userID, ttl).Err()
}

// Get returns the user ID for a live session, or "" when the session was
// ended or never existed.
func (s *RedisSessionStore) Get(ctx context.Context, tokenID string) (string, error) {
	val, err := s.client.Get(ctx, sessionKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, sessionKey(tokenID)).Err()
}

func (s *RedisSessionStore) Healthy(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

var _ SessionStore = (*RedisSessionStore)(nil)
