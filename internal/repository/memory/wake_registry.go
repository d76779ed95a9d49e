package memory

import (
	"sync"
	"time"
)

// WakeRegistry tracks, per user, whether the privileged interaction window is
// open. Expiry is measured with the monotonic clock (time.Since on a stored
// time.Now()), so wall-clock adjustments cannot reopen or shorten a window.
type WakeRegistry struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[string]time.Time
}

func NewWakeRegistry(timeout time.Duration) *WakeRegistry {
	return &WakeRegistry{
		timeout: timeout,
		entries: make(map[string]time.Time),
	}
}

// Activate opens (or refreshes) the user's wake window. Idempotent.
func (r *WakeRegistry) Activate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = time.Now()
}

// IsAwake reports whether the user's window is open, lazily evicting an
// expired entry.
func (r *WakeRegistry) IsAwake(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	activated, ok := r.entries[userID]
	if !ok {
		return false
	}
	if time.Since(activated) >= r.timeout {
		delete(r.entries, userID)
		return false
	}
	return true
}
