package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromRedis(raw), mr
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	key := client.AttemptKey("search-projection", "evt-1")

	count, err := client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	mr.FastForward(30 * time.Second)
	count, err = client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected counter 2 got %d", count)
	}
	if ttl := mr.TTL(key); ttl != 30*time.Second {
		t.Fatalf("ttl should not be reset on later increments, got %v", ttl)
	}
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)

	ok, err := client.SetNX(ctx, "k", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "cb:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.AttemptKey("auction-bids", "evt"); got != "cb:attempts:auction-bids:evt" {
		t.Fatalf("unexpected attempt key %s", got)
	}
	if got := client.LockKey(" bidding-cron "); got != "cb:lock:bidding-cron" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey(""); got != "cb:lock" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
}

func TestOptionsPrefersURL(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 {
		t.Fatalf("url settings not applied: addr=%s db=%d", opts.Addr, opts.DB)
	}
	if opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("config should fill unset options: pool=%d dial=%v", opts.PoolSize, opts.DialTimeout)
	}
	if _, err := options(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestDelIfEqualsOnlyRemovesMatchingValue(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	key := client.LockKey("auction-cron")
	if err := mr.Set(key, "worker-1/abc"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := client.DelIfEquals(ctx, key, "worker-2/def")
	if err != nil || deleted {
		t.Fatalf("expected no delete for foreign value, got %v %v", deleted, err)
	}
	if !mr.Exists(key) {
		t.Fatal("foreign value removed the key")
	}

	deleted, err = client.DelIfEquals(ctx, key, "worker-1/abc")
	if err != nil || !deleted {
		t.Fatalf("expected delete for matching value, got %v %v", deleted, err)
	}
	if mr.Exists(key) {
		t.Fatal("key still present")
	}

	deleted, err = client.DelIfEquals(ctx, key, "worker-1/abc")
	if err != nil || deleted {
		t.Fatalf("expected missing key to report false, got %v %v", deleted, err)
	}
}
