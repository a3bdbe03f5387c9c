package repository

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSQLiteKVUpsert(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%t err=%v", ok, err)
	}
	if err := kv.Set(ctx, "k", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || value != "two" {
		t.Fatalf("expected two, got %q ok=%t err=%v", value, ok, err)
	}
}

func TestSQLiteKVTablesAreIndependent(t *testing.T) {
	primary := newTestKV(t)
	mirror, err := NewSQLiteKV(primary.db, MirrorTable)
	if err != nil {
		t.Fatalf("mirror kv: %v", err)
	}
	ctx := context.Background()

	if err := primary.Set(ctx, ThemeKey, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := mirror.Get(ctx, ThemeKey); ok {
		t.Fatalf("expected mirror table to be independent of primary")
	}
}

func TestRedisKV(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := NewRedisKV(client, "mirror:")
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, TasksKey); err != nil || ok {
		t.Fatalf("expected missing key, ok=%t err=%v", ok, err)
	}
	if err := kv.Set(ctx, TasksKey, `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("mirror:" + TasksKey) {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL("mirror:" + TasksKey); ttl != 0 {
		t.Fatalf("expected no expiry, got %v", ttl)
	}
	value, ok, err := kv.Get(ctx, TasksKey)
	if err != nil || !ok || value != `[]` {
		t.Fatalf("unexpected value %q ok=%t err=%v", value, ok, err)
	}

	mr.Close()
	if _, _, err := kv.Get(ctx, TasksKey); err == nil {
		t.Fatalf("expected error once redis is gone")
	}
}
