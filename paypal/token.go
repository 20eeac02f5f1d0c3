package paypal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore caches OAuth2 access tokens between requests. A miss returns
// ("", nil); errors are reserved for the backing store failing.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// RedisTokenStore keeps the token in redis so it survives restarts and is
// shared between replicas.
type RedisTokenStore struct {
	rdb *redis.Client
	key string
}

// NewRedisTokenStore creates a redis-backed token store. The key is scoped by
// client id so gateways with different credentials never share a token.
func NewRedisTokenStore(rdb *redis.Client, clientID string) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, key: "paypal:oauth2_token:" + clientID}
}

func (s *RedisTokenStore) Get(ctx context.Context) (string, error) {
	token, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key, token, ttl).Err()
}

func (s *RedisTokenStore) Delete(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

// MemoryTokenStore is a process-local token store, used when redis is not
// configured and in tests.
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || time.Now().After(s.expires) {
		return "", nil
	}
	return s.token, nil
}

func (s *MemoryTokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = time.Now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
