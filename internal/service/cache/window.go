package cache

import (
	"sync"
	"time"

	"ChumRoom/internal/domain/models"
)

// Clock returns the current time; injectable for deterministic tests.
type Clock func() time.Time

// Window holds the last successfully decoded message batch. The snapshot
// is replaced wholesale on each successful scan and never mutated in
// place, so readers iterating an old snapshot are unaffected by a
// concurrent replace. A snapshot older than the TTL is no longer fresh
// but stays available for stale fallback when a scan fails.
type Window struct {
	mu       sync.RWMutex
	snapshot []*models.ProtocolMessage
	storedAt time.Time
	ttl      time.Duration
	now      Clock
}

// NewWindow creates a window cache with the given TTL.
func NewWindow(ttl time.Duration, now Clock) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{ttl: ttl, now: now}
}

// Fresh returns the snapshot when one exists and is within the TTL.
func (w *Window) Fresh() ([]*models.ProtocolMessage, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.snapshot) == 0 {
		return nil, false
	}
	if w.now().Sub(w.storedAt) >= w.ttl {
		return nil, false
	}
	return w.snapshot, true
}

// Stale returns whatever snapshot exists, regardless of age. Nil when no
// scan has ever succeeded.
func (w *Window) Stale() []*models.ProtocolMessage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Replace swaps in a new snapshot atomically.
func (w *Window) Replace(msgs []*models.ProtocolMessage) {
	snapshot := make([]*models.ProtocolMessage, len(msgs))
	copy(snapshot, msgs)
	w.mu.Lock()
	w.snapshot = snapshot
	w.storedAt = w.now()
	w.mu.Unlock()
}

// Age returns how long ago the snapshot was stored; false when empty.
func (w *Window) Age() (time.Duration, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.snapshot) == 0 {
		return 0, false
	}
	return w.now().Sub(w.storedAt), true
}

// Len returns the snapshot size.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.snapshot)
}
