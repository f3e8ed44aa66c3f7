package trader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SignalGuard rejects webhook deliveries already seen within a time window.
type SignalGuard interface {
	// Acquire returns false when key was acquired before and has not expired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so the next delivery is processed.
	Release(ctx context.Context, key string) error
}

// SignalFingerprint identifies a delivery by route and raw body.
func SignalFingerprint(route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// MemorySignalGuard keeps fingerprints in process memory.
type MemorySignalGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time // fingerprint -> expiry
	now  func() time.Time
}

func NewMemorySignalGuard() *MemorySignalGuard {
	return &MemorySignalGuard{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (g *MemorySignalGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, expiry := range g.seen {
		if !now.Before(expiry) {
			delete(g.seen, k)
		}
	}

	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}

func (g *MemorySignalGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}

// RedisSignalGuard shares fingerprints across instances through SETNX.
type RedisSignalGuard struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSignalGuard(client redis.Cmdable, prefix string) *RedisSignalGuard {
	return &RedisSignalGuard{
		client: client,
		prefix: prefix,
	}
}

func (g *RedisSignalGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, ttl).Result()
}

func (g *RedisSignalGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}
