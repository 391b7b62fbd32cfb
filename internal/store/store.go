package store

import (
	"context"
	"sync"
	"time"
)

// Store is the persistent key/value contract consumed by the reminder
// scheduler and the session lifecycle. Values are JSON-encoded by the
// adapters; Get decodes into out and returns a not-found error for
// missing keys.
type Store interface {
	Get(ctx context.Context, key string, out interface{}) error
	Update(ctx context.Context, key string, value interface{}) error
	Close() error
}

// Well-known keys
const (
	KeySessionID       = "session_id"
	KeyCustomReminders = "custom_reminders"
	KeyDisabledUntil   = "reminders_disabled_until"
)

// debounced wraps a Store and coalesces rapid successive updates to
// the same key into one persisted write.
type debounced struct {
	inner Store
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	values map[string]interface{}
	closed bool
}

// NewDebounced wraps inner so writes are delayed by delay and rapid
// updates to one key collapse into the latest value. Reads pass
// straight through without consulting unflushed values; callers read
// their own state from memory, not the store.
func NewDebounced(inner Store, delay time.Duration) Store {
	return &debounced{
		inner:  inner,
		delay:  delay,
		timers: make(map[string]*time.Timer),
		values: make(map[string]interface{}),
	}
}

func (d *debounced) Get(ctx context.Context, key string, out interface{}) error {
	return d.inner.Get(ctx, key, out)
}

func (d *debounced) Update(ctx context.Context, key string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.inner.Update(ctx, key, value)
	}

	d.values[key] = value
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.flush(key)
	})
	return nil
}

func (d *debounced) flush(key string) {
	d.mu.Lock()
	value, ok := d.values[key]
	delete(d.values, key)
	delete(d.timers, key)
	d.mu.Unlock()
	if !ok {
		return
	}
	// best effort; adapters log their own failures
	_ = d.inner.Update(context.Background(), key, value)
}

// Close flushes every pending write before closing the inner store
func (d *debounced) Close() error {
	d.mu.Lock()
	d.closed = true
	for _, t := range d.timers {
		t.Stop()
	}
	keys := make([]string, 0, len(d.values))
	for key := range d.values {
		keys = append(keys, key)
	}
	d.mu.Unlock()

	for _, key := range keys {
		d.flush(key)
	}
	return d.inner.Close()
}
