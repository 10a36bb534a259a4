package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delive/storefront/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps session state as JSON under session:<id>. Every
// save refreshes the TTL.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func (s *RedisSessionStore) SessionKey(id string) string {
	return "session:" + id
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	payload, err := s.Client.Get(ctx, s.SessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewSession(), nil
	}
	if err != nil {
		return nil, err
	}

	sess := domain.NewSession()
	if err := json.Unmarshal(payload, sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Cart.DishIDs == nil {
		sess.Cart.DishIDs = []int{}
	}
	return sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, id string, sess *domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.SessionKey(id), payload, s.TTL).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, s.SessionKey(id)).Err()
}
