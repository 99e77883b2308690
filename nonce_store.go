package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultNonceTTL bounds how long a consumed nonce is remembered
const DefaultNonceTTL = 24 * time.Hour

// NonceStore records consumed sign-in nonces. Consume returns
// ErrNonceReplayed when the nonce was already used.
type NonceStore interface {
	Consume(ctx context.Context, nonce string) error
}

// MemoryNonceStore keeps consumed nonces in process memory
type MemoryNonceStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryNonceStore returns an in-memory store that forgets nonces after ttl
func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &MemoryNonceStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Consume implements NonceStore
func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl/4 {
		s.sweep(now)
	}

	if exp, ok := s.seen[nonce]; ok && now.Before(exp) {
		return ErrNonceReplayed
	}
	s.seen[nonce] = now.Add(s.ttl)
	return nil
}

// Len returns the number of nonces currently remembered
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *MemoryNonceStore) sweep(now time.Time) {
	for k, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, k)
		}
	}
	s.lastSweep = now
}
