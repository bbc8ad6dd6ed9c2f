package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDeletePattern(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "wallet:addr1:tip", []byte("a"), 0)
	_ = m.Set(ctx, "wallet:addr1:balance", []byte("b"), 0)
	_ = m.Set(ctx, "wallet:addr2:tip", []byte("c"), 0)

	require.NoError(t, m.DeletePattern(ctx, "wallet:addr1:*"))

	_, ok, _ := m.Get(ctx, "wallet:addr1:tip")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "wallet:addr2:tip")
	assert.True(t, ok)
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("boom")
}
func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("boom")
}
func (failingCache) Delete(ctx context.Context, key string) error          { return errors.New("boom") }
func (failingCache) DeletePattern(ctx context.Context, pattern string) error { return errors.New("boom") }
func (failingCache) Has(ctx context.Context, key string) (bool, error)     { return false, errors.New("boom") }
func (failingCache) Clear(ctx context.Context) error                      { return errors.New("boom") }
func (failingCache) Mget(ctx context.Context, keys []string) (map[string][]byte, error) {
	return nil, errors.New("boom")
}
func (failingCache) Mset(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	return errors.New("boom")
}

func TestSafeSwallowsErrors(t *testing.T) {
	s := NewSafe(failingCache{}, silentLog())
	ctx := context.Background()

	v, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.Nil(t, v)

	assert.NotPanics(t, func() {
		s.Set(ctx, "k", []byte("v"), time.Minute)
		s.Delete(ctx, "k")
		s.DeletePattern(ctx, "k*")
	})
}

func TestSafeNilInnerIsAlwaysAMiss(t *testing.T) {
	s := NewSafe(nil, silentLog())
	ctx := context.Background()

	v, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Nil(t, s.Mget(ctx, []string{"k"}))
}
