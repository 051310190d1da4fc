package discord

import (
	"context"
	"sync"
	"time"

	"github.com/redis/rueidis"
)

// Cache stores encoded upstream responses for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local cache with lazy expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   Clock
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), clock: realClock{}}
}

func (m *MemoryCache) WithClock(clock Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(entry.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, entry := range m.entries {
		if !now.Before(entry.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{value: value, expires: now.Add(ttl)}
}

const redisKeyPrefix = "nexa:discord:"

// RedisCache shares cached responses between dashboard instances.
type RedisCache struct {
	client rueidis.Client
}

func NewRedisCache(client rueidis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Do(ctx, r.client.B().Get().Key(redisKeyPrefix+key).Build()).AsBytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_ = r.client.Do(ctx, r.client.B().Set().Key(redisKeyPrefix+key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()).Error()
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (NopCache) Set(context.Context, string, []byte, time.Duration) {}
