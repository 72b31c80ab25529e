package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)
	key := fmt.Sprintf(KeyDedup, "kitchen", "ev-1")

	ok, err := Claim(ctx, rdb, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	ok, err = Claim(ctx, rdb, key, time.Minute)
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v", ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if ok, _ := Claim(ctx, rdb, key, time.Minute); !ok {
		t.Fatal("claim after expiry should win")
	}
}

func TestGetStringMiss(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)

	if _, ok, err := GetString(ctx, rdb, "nope"); ok || err != nil {
		t.Fatalf("miss = %v, %v", ok, err)
	}
	_ = rdb.Set(ctx, "k", "v", 0).Err()
	if s, ok, err := GetString(ctx, rdb, "k"); !ok || err != nil || s != "v" {
		t.Fatalf("hit = %q, %v, %v", s, ok, err)
	}
}
