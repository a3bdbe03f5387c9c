package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStorage marks failures of the underlying key space (unavailable, full, denied).
var ErrStorage = errors.New("storage failure")

const (
	PrimaryTable = "kv_entries"
	MirrorTable  = "mirror_entries"
)

// KeyValue is a durable string key space.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type kvEntry struct {
	Name      string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// SQLiteKV stores keys as rows of a single gorm table.
type SQLiteKV struct {
	db    *gorm.DB
	table string
}

func NewSQLiteKV(db *gorm.DB, table string) (*SQLiteKV, error) {
	if table == "" {
		table = PrimaryTable
	}
	if err := db.Table(table).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", table, err)
	}
	return &SQLiteKV{db: db, table: table}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Table(s.table).Where("name = ?", key).Take(&entry).Error
	switch {
	case err == nil:
		return entry.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: read %s: %w", ErrStorage, key, err)
	}
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	return nil
}

// RedisKV keeps keys in Redis without expiry. Used as the sync mirror.
type RedisKV struct {
	client *redis.Client
	prefix string
}

func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	if client == nil {
		panic("repository.NewRedisKV: client is nil")
	}
	return &RedisKV{client: client, prefix: prefix}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, redis.Nil):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: redis get %s: %w", ErrStorage, key, err)
	}
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", ErrStorage, key, err)
	}
	return nil
}
