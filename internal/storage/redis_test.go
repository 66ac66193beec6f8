package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := testContext(t)

	if err := cache.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "value1" {
		t.Errorf("Get() = %q, want value1", got)
	}
}

func TestRedisCache_GetMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	if _, err := cache.Get(testContext(t), "missing"); err == nil {
		t.Error("Get() on missing key should return an error")
	}
}

func TestRedisCache_Del(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := testContext(t)

	if err := cache.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Del(ctx, "key1"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}

	exists, err := cache.Exists(ctx, "key1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("key still exists after Del()")
	}
}

func TestRedisCache_HSetHGetAll(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := testContext(t)

	if err := cache.HSet(ctx, "hash1", "field1", "a", "field2", "b"); err != nil {
		t.Fatalf("HSet() error = %v", err)
	}

	fields, err := cache.HGetAll(ctx, "hash1")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if fields["field1"] != "a" || fields["field2"] != "b" {
		t.Errorf("HGetAll() = %v", fields)
	}
}

func TestRedisCache_HGetAllMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	fields, err := cache.HGetAll(testContext(t), "missing")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("HGetAll() on missing key = %v, want empty map", fields)
	}
}

func TestRedisCache_Expire(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := testContext(t)

	if err := cache.Set(ctx, "key1", "value1", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Expire(ctx, "key1", time.Minute); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	exists, err := cache.Exists(ctx, "key1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("key survived past its expiry")
	}
}
