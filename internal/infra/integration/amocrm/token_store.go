package amocrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists the TokenSet. Load returns ErrTokenNotFound when empty.
type TokenStore interface {
	Load(ctx context.Context) (*TokenSet, error)
	Save(ctx context.Context, tokens *TokenSet) error
}

type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens *TokenSet
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(context.Context) (*TokenSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return nil, ErrTokenNotFound
	}
	copied := *s.tokens
	return &copied, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, tokens *TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tokens
	s.tokens = &copied
	return nil
}

const tokenKeyPrefix = "amocrm:tokens:"

// RedisTokenStore shares tokens between instances. amoCRM rotates the
// refresh token on every refresh, so instances must not keep private copies.
type RedisTokenStore struct {
	redis redis.Cmdable
	key   string
}

func NewRedisTokenStore(client redis.Cmdable, subdomain string) *RedisTokenStore {
	return &RedisTokenStore{redis: client, key: tokenKeyPrefix + subdomain}
}

func (s *RedisTokenStore) Load(ctx context.Context) (*TokenSet, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("amocrm: load tokens: %w", err)
	}

	var tokens TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("amocrm: decode tokens: %w", err)
	}
	return &tokens, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, tokens *TokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("amocrm: encode tokens: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("amocrm: save tokens: %w", err)
	}
	return nil
}
