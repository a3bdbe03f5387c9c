package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// Record is an element of a persisted collection.
type Record interface {
	RecordID() string
}

// Collection is an ordered list of records persisted as one JSON value under a single key.
// Each call reads and rewrites the whole list; calls on the same collection are serialized.
type Collection[R Record] struct {
	kv      KeyValue
	key     string
	latency time.Duration
	mu      sync.Mutex
}

func NewCollection[R Record](kv KeyValue, key string, latency time.Duration) *Collection[R] {
	return &Collection[R]{kv: kv, key: key, latency: latency}
}

func (c *Collection[R]) Key() string {
	return c.key
}

// All returns the stored records in order, or an empty slice if nothing was written yet.
func (c *Collection[R]) All(ctx context.Context) ([]R, error) {
	if err := simulateLatency(ctx, 2*c.latency); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// ReplaceAll overwrites the collection and returns records unchanged.
func (c *Collection[R]) ReplaceAll(ctx context.Context, records []R) ([]R, error) {
	if err := simulateLatency(ctx, 2*c.latency); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.save(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create appends record to the end of the collection.
func (c *Collection[R]) Create(ctx context.Context, record R) (R, error) {
	var zero R
	if err := simulateLatency(ctx, 2*c.latency); err != nil {
		return zero, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	records = append(records, record)
	if err := c.save(ctx, records); err != nil {
		return zero, err
	}
	return record, nil
}

// Update replaces the record with the same id. A missing id is not an error and writes nothing.
func (c *Collection[R]) Update(ctx context.Context, record R) (R, bool, error) {
	var zero R
	if err := simulateLatency(ctx, 2*c.latency); err != nil {
		return zero, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, false, err
	}
	idx := indexOf(records, record.RecordID())
	if idx < 0 {
		return zero, false, nil
	}
	records[idx] = record
	if err := c.save(ctx, records); err != nil {
		return zero, false, err
	}
	return record, true, nil
}

// Patch applies change to the stored record with the given id, keeping every field change leaves alone.
func (c *Collection[R]) Patch(ctx context.Context, id string, change func(*R)) (R, bool, error) {
	var zero R
	if err := simulateLatency(ctx, c.latency+c.latency/2); err != nil {
		return zero, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, false, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return zero, false, nil
	}
	change(&records[idx])
	if err := c.save(ctx, records); err != nil {
		return zero, false, err
	}
	return records[idx], true, nil
}

// Delete removes the record with the given id. A missing id writes nothing.
func (c *Collection[R]) Delete(ctx context.Context, id string) (bool, error) {
	if err := simulateLatency(ctx, 2*c.latency); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]R, 0, len(records))
	for _, r := range records {
		if r.RecordID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return false, nil
	}
	if err := c.save(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[R]) load(ctx context.Context) ([]R, error) {
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []R{}, nil
	}
	var records []R
	if err := sonic.UnmarshalString(raw, &records); err != nil {
		log.WithError(err).WithField("key", c.key).Warn("stored collection is corrupt, treating as empty")
		return []R{}, nil
	}
	if records == nil {
		records = []R{}
	}
	return records, nil
}

func (c *Collection[R]) save(ctx context.Context, records []R) error {
	if records == nil {
		records = []R{}
	}
	data, err := sonic.MarshalString(records)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStorage, c.key, err)
	}
	return c.kv.Set(ctx, c.key, data)
}

func indexOf[R Record](records []R, id string) int {
	for i, r := range records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func simulateLatency(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
