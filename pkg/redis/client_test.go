package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
)

func TestIdempotencyRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	key := client.IdempotencyKey("shopper-1|POST|/api/v1/checkout/confirm", "abc")
	ok, err := client.SetNX(ctx, key, "payload", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "other", time.Hour)
	if err != nil || ok {
		t.Fatalf("second SetNX should lose, ok=%v err=%v", ok, err)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != "payload" {
		t.Fatalf("expected stored payload, got %q err=%v", got, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestIdempotencyKeyHashesClientID(t *testing.T) {
	client := &Client{}
	a := client.IdempotencyKey("webhook:stripe", "evt_1")
	if !strings.HasPrefix(a, "lm:idem:webhook:stripe:") {
		t.Fatalf("unexpected key %s", a)
	}
	if a == client.IdempotencyKey("webhook:stripe", "evt_2") {
		t.Fatal("distinct ids must produce distinct keys")
	}
	if a != NewMemoryStore().IdempotencyKey("webhook:stripe", "evt_1") {
		t.Fatal("memory store and redis client must agree on keys")
	}
	long := client.IdempotencyKey("", strings.Repeat("x", 500))
	if !strings.HasPrefix(long, "lm:idem:") || len(long) > 64 {
		t.Fatalf("expected bounded key without scope, got %s", long)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.DB != 3 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	if err := (&Client{}).Ping(context.Background()); err == nil {
		t.Fatal("expected error from zero client")
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	if ok, _ := store.SetNX(ctx, "k", "v", time.Minute); !ok {
		t.Fatalf("expected first set to win")
	}
	if got, err := store.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("unexpected get %q err=%v", got, err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected expiry, got %v", err)
	}
	key := store.IdempotencyKey("webhook:square", "evt")
	if ok, _ := store.SetNX(ctx, key, "1", 0); !ok {
		t.Fatalf("expected claim")
	}
	if ok, _ := store.SetNX(ctx, key, "1", 0); ok {
		t.Fatalf("expected duplicate claim to be rejected")
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
