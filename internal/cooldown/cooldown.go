// Package cooldown provides a thread-safe per-device cooldown table. When a
// probe against a device times out, the device enters cooldown and further
// probes are suppressed until the window elapses, so one hung or
// unresponsive drive cannot stall every scan while it recovers.
//
// This is the only state shared across scans. It is constructed once in
// main and passed by reference to the prober; there is no package-level
// instance.
package cooldown

import (
	"sync"
	"time"
)

// DefaultDuration is the cooldown window applied when none is configured.
const DefaultDuration = 5 * time.Minute

// Table tracks devices currently in cooldown.
// All methods are safe for concurrent use.
type Table struct {
	duration time.Duration

	mu      sync.Mutex
	entries map[string]time.Time // device path -> expiry
	nowFunc func() time.Time     // injectable for testing
}

// NewTable creates a cooldown table with the given window.
// A non-positive duration falls back to DefaultDuration.
func NewTable(duration time.Duration) *Table {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Table{
		duration: duration,
		entries:  make(map[string]time.Time),
		nowFunc:  time.Now,
	}
}

// InCooldown reports whether the device's cooldown window is still open.
// Expired entries are evicted on read; there is no background sweep.
func (t *Table) InCooldown(device string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	expires, ok := t.entries[device]
	if !ok {
		return false
	}
	if !t.nowFunc().Before(expires) {
		delete(t.entries, device)
		return false
	}
	return true
}

// Set puts the device into cooldown, resetting any existing entry to a
// full window from now.
func (t *Table) Set(device string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[device] = t.nowFunc().Add(t.duration)
}

// Expiry returns the device's cooldown expiry and whether an entry exists.
// Unlike InCooldown it does not evict.
func (t *Table) Expiry(device string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expires, ok := t.entries[device]
	return expires, ok
}

// Len returns the number of entries currently in the table, including ones
// that have expired but not yet been evicted by a read.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
