package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/hoaledger/internal/usecase"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "t1:fund:f1:2024-06-30", []byte(`{"balance":"10.00"}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "t1:fund:f1:2024-06-30")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(val) != `{"balance":"10.00"}` {
		t.Fatalf("unexpected value %s", val)
	}

	if !mr.Exists("snapshot:t1:fund:f1:2024-06-30") {
		t.Fatalf("expected key stored under snapshot prefix, have %v", mr.Keys())
	}
}

func TestCacheMiss(t *testing.T) {
	client, _ := newTestRedisClient(t)

	_, err := NewCache(client).Get(context.Background(), "absent")
	if !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCacheExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, "k"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, _ := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestCacheServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	mr.Close()

	_, err := NewCache(client).Get(context.Background(), "k")
	if err == nil || errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
