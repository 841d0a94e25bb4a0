package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// newTestRedis connects to REDIS_ADDR or skips.
func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	cfg := DefaultRedisConfig(addr)
	cfg.Prefix = fmt.Sprintf("reversteem_test_%d:", time.Now().UnixNano())
	cfg.TTL = time.Minute
	r, err := NewRedisStore(cfg)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestBlobStoreContract_Redis(t *testing.T) {
	exerciseBlobStore(t, newTestRedis(t))
}

func TestRedisStore_Ping(t *testing.T) {
	r := newTestRedis(t)
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected connection error")
	}
}
