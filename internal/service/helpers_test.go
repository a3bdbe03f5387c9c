package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"todo-notes/internal/app"
	"todo-notes/internal/repository"
)

type countingKV struct {
	repository.KeyValue

	mu     sync.Mutex
	writes map[string]int
	values map[string][]string
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.writes[key]++
	c.values[key] = append(c.values[key], value)
	c.mu.Unlock()
	return c.KeyValue.Set(ctx, key, value)
}

func (c *countingKV) Writes(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[key]
}

func (c *countingKV) LastValue(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := c.values[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

type testEnv struct {
	store  *repository.RecordStore
	kv     *countingKV
	mirror *repository.SQLiteKV
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	primary, err := repository.NewSQLiteKV(db, repository.PrimaryTable)
	if err != nil {
		t.Fatalf("primary kv: %v", err)
	}
	mirror, err := repository.NewSQLiteKV(db, repository.MirrorTable)
	if err != nil {
		t.Fatalf("mirror kv: %v", err)
	}
	kv := &countingKV{KeyValue: primary, writes: map[string]int{}, values: map[string][]string{}}
	return &testEnv{
		store:  repository.NewRecordStore(kv, 0),
		kv:     kv,
		mirror: mirror,
	}
}

type fakeNotifier struct {
	mu         sync.Mutex
	permission app.Permission
	sent       []Notification
	fail       error
}

func (f *fakeNotifier) Permission() app.Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *fakeNotifier) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) Sent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}
