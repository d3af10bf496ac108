package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error
	Ping(ctx context.Context) error
	SlotKey(sessionID, slot string) string
}

// RedisStore keeps slots as plain string keys; expiry is native TTL.
type RedisStore struct {
	client redisClient
}

func NewRedisStore(client redisClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.SlotKey(key.Session, key.Slot))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key.Slot, err)
	}
	return []byte(value), nil
}

// Take relies on GETDEL, which is atomic on the server.
func (s *RedisStore) Take(ctx context.Context, key Key) ([]byte, error) {
	value, err := s.client.GetDel(ctx, s.client.SlotKey(key.Session, key.Slot))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel %s: %w", key.Slot, err)
	}
	return []byte(value), nil
}

// GetSlots loads a whole session with one MGET.
func (s *RedisStore) GetSlots(ctx context.Context, session string, slots []string) (map[string][]byte, error) {
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = s.client.SlotKey(session, slot)
	}
	values, err := s.client.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make(map[string][]byte, len(values))
	for i, slot := range slots {
		if value, ok := values[keys[i]]; ok {
			out[slot] = []byte(value)
		}
	}
	return out, nil
}

func (s *RedisStore) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.client.SlotKey(key.Session, key.Slot), string(value), ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key.Slot, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, 0, len(keys))
	for _, key := range keys {
		raw = append(raw, s.client.SlotKey(key.Session, key.Slot))
	}
	if err := s.client.Del(ctx, raw...); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, ttl time.Duration, keys ...Key) error {
	if ttl <= 0 || len(keys) == 0 {
		return nil
	}
	raw := make([]string, 0, len(keys))
	for _, key := range keys {
		raw = append(raw, s.client.SlotKey(key.Session, key.Slot))
	}
	if err := s.client.Expire(ctx, ttl, raw...); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
