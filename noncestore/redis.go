// Package noncestore holds shared NonceStore implementations for deployments
// that run more than one sign-in instance.
package noncestore

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-errors"
	"github.com/sigle/sigle-auth"
)

// DefaultKeyPrefix namespaces nonce keys in a shared Redis database
const DefaultKeyPrefix = "sigle:auth:nonce:"

// RedisStore consumes nonces with SETNX so two instances can never accept
// the same nonce.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ auth.NonceStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = auth.DefaultNonceTTL
	}
	return &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    ttl,
	}
}

// Dial connects to addr and pings the server before returning the store
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.CategoryOperation, "unable to reach nonce store").
			WithMetadata(map[string]any{"addr": addr})
	}

	return NewRedisStore(client, ttl), nil
}

// WithPrefix changes the key namespace
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	if strings.TrimSpace(prefix) != "" {
		s.prefix = prefix
	}
	return s
}

// Consume implements auth.NonceStore
func (s *RedisStore) Consume(ctx context.Context, nonce string) error {
	if nonce == "" {
		return auth.ErrNonceReplayed
	}

	ok, err := s.client.SetNX(ctx, s.prefix+nonce, 1, s.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "nonce store unavailable")
	}

	if !ok {
		return auth.ErrNonceReplayed
	}

	return nil
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
