package service

import (
	"sync"
	"time"
)

// Debouncer runs at most one pending callback per key. Scheduling a key again
// cancels the pending callback and restarts the quiet period.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*debounceEntry
	seq     uint64
	stopped bool
}

type debounceEntry struct {
	timer *time.Timer
	seq   uint64
}

func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*debounceEntry)}
}

func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	seq := d.seq
	entry := &debounceEntry{seq: seq}
	entry.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current, ok := d.pending[key]
		if !ok || current.seq != seq {
			// superseded after the timer had already fired
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = entry
}

// Cancel drops the pending callback for key and reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(d.pending, key)
	return true
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels everything and rejects later Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
}
