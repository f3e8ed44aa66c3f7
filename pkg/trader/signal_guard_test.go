package trader

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the SetNX and Del calls the guard makes.
type fakeRedis struct {
	redis.Cmdable
	keys map[string]time.Duration
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.keys[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, key := range keys {
		if _, ok := f.keys[key]; ok {
			delete(f.keys, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestMemorySignalGuardWindow(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	guard := NewMemorySignalGuard()
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("First acquire should succeed, got %v %v", ok, err)
	}

	now = now.Add(30 * time.Second)
	if ok, _ := guard.Acquire(ctx, "k", time.Minute); ok {
		t.Errorf("Second acquire within the window should fail")
	}
	if ok, _ := guard.Acquire(ctx, "other", time.Minute); !ok {
		t.Errorf("A different key should be acquired")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := guard.Acquire(ctx, "k", time.Minute); !ok {
		t.Errorf("Acquire after the window should succeed")
	}
}

func TestMemorySignalGuardRelease(t *testing.T) {
	guard := NewMemorySignalGuard()
	ctx := context.Background()

	if ok, _ := guard.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatalf("First acquire should succeed")
	}
	if err := guard.Release(ctx, "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := guard.Acquire(ctx, "k", time.Minute); !ok {
		t.Errorf("Acquire after release should succeed")
	}
	if err := guard.Release(ctx, "missing"); err != nil {
		t.Errorf("Releasing an unknown key should not fail, got %v", err)
	}
}

func TestRedisSignalGuard(t *testing.T) {
	client := &fakeRedis{keys: map[string]time.Duration{}}
	guard := NewRedisSignalGuard(client, "signal:")
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("First acquire should succeed, got %v %v", ok, err)
	}
	if ttl, found := client.keys["signal:k"]; !found || ttl != time.Minute {
		t.Errorf("Expected prefixed key with a 1m ttl, got %v", client.keys)
	}
	if ok, _ := guard.Acquire(ctx, "k", time.Minute); ok {
		t.Errorf("Second acquire should fail")
	}

	if err := guard.Release(ctx, "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := guard.Acquire(ctx, "k", time.Minute); !ok {
		t.Errorf("Acquire after release should succeed")
	}
}

func TestSignalFingerprint(t *testing.T) {
	body := []byte(`{"ticker":"AAPL","action":"buy"}`)

	if SignalFingerprint("paper/stock", body) != SignalFingerprint("paper/stock", body) {
		t.Errorf("Fingerprint should be stable")
	}
	if SignalFingerprint("paper/stock", body) == SignalFingerprint("live/stock", body) {
		t.Errorf("Fingerprint should depend on the route")
	}
	if SignalFingerprint("paper/stock", body) == SignalFingerprint("paper/stock", []byte(`{"ticker":"AAPL","action":"sell"}`)) {
		t.Errorf("Fingerprint should depend on the body")
	}
}
