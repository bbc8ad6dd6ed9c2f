// Package cache provides the generic key-value cache the rest of the engine
// treats as advisory: misses, errors, and a disabled shared tier must never
// change the correctness of a read path, only its latency. Two
// implementations share this interface — an in-process map (always
// available) and a Redis-compatible client (used when CACHE_URL is set).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is the narrow capability every tier of the engine's caching needs.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Mget(ctx context.Context, keys []string) (map[string][]byte, error)
	Mset(ctx context.Context, values map[string][]byte, ttl time.Duration) error
}

// Logical key namespaces used by the engine.
const (
	WalletKeyPrefix      = "wallet:"
	TransactionKeyPrefix = "tx:"
	TokenKeyPrefix       = "token:"
)

// WalletTTL, TransactionTTL and TokenTTL are the cache lifetimes named in
// the design: wallet/tx snapshots live 5 minutes, token metadata 15.
const (
	WalletTTL      = 5 * time.Minute
	TransactionTTL = 5 * time.Minute
	TokenTTL       = 15 * time.Minute
)

// Safe wraps a Cache so that every error is logged and swallowed, giving
// callers a cache that is correct-by-construction to treat as best-effort.
// It is the single place the "never let a cache error change behavior" rule
// is enforced, rather than repeating log-and-continue at every call site.
type Safe struct {
	inner Cache
	log   *logrus.Entry
}

// NewSafe wraps inner. A nil inner yields a Safe that reports every lookup
// as a miss, which is how the engine disables the shared cache tier when
// CACHE_URL is unset.
func NewSafe(inner Cache, log *logrus.Entry) *Safe {
	return &Safe{inner: inner, log: log}
}

func (s *Safe) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.inner == nil {
		return nil, false
	}
	v, ok, err := s.inner.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache get failed, treating as miss")
		return nil, false
	}
	return v, ok
}

func (s *Safe) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Set(ctx, key, value, ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

func (s *Safe) Delete(ctx context.Context, key string) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache delete failed")
	}
}

func (s *Safe) DeletePattern(ctx context.Context, pattern string) {
	if s.inner == nil {
		return
	}
	if err := s.inner.DeletePattern(ctx, pattern); err != nil {
		s.log.WithError(err).WithField("pattern", pattern).Warn("cache delete-pattern failed")
	}
}

func (s *Safe) Mget(ctx context.Context, keys []string) map[string][]byte {
	if s.inner == nil {
		return nil
	}
	v, err := s.inner.Mget(ctx, keys)
	if err != nil {
		s.log.WithError(err).Warn("cache mget failed")
		return nil
	}
	return v
}

func (s *Safe) Mset(ctx context.Context, values map[string][]byte, ttl time.Duration) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Mset(ctx, values, ttl); err != nil {
		s.log.WithError(err).Warn("cache mset failed")
	}
}

// Memory is an in-process Cache, the always-available fallback when
// CACHE_URL is not configured. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry
}

type memEntry struct {
	value    []byte
	expireAt time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || (!e.expireAt.IsZero() && time.Now().After(e.expireAt)) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expire time.Time
	if ttl > 0 {
		expire = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = memEntry{value: value, expireAt: expire}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	prefix := pattern
	if idx := indexOfWildcard(pattern); idx >= 0 {
		prefix = pattern[:idx]
	}
	m.mu.Lock()
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func indexOfWildcard(s string) int {
	for i, c := range s {
		if c == '*' {
			return i
		}
	}
	return -1
}

func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = make(map[string]memEntry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Mget(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok, _ := m.Get(ctx, k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) Mset(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	for k, v := range values {
		_ = m.Set(ctx, k, v, ttl)
	}
	return nil
}
