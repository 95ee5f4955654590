package reminder

import (
	"sync"
	"time"
)

// Tracker remembers when the last reminder went out per chore. It is
// process-local by design: a restart makes every open chore immediately
// eligible again, bounding the damage to one duplicate reminder per chore.
type Tracker struct {
	mu       sync.Mutex
	lastSent map[int64]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{lastSent: make(map[int64]time.Time)}
}

// ShouldSend reports whether a reminder may go out for the chore. A chore
// reminded within the window is skipped; exactly window elapsed is eligible
// again (strict less-than comparison).
func (t *Tracker) ShouldSend(choreID int64, now time.Time, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSent[choreID]
	if !ok {
		return true
	}
	return now.Sub(last) >= window
}

// MarkSent records a successful delivery. Failed deliveries are never
// recorded, which keeps the chore eligible for retry on the next sweep.
func (t *Tracker) MarkSent(choreID int64, now time.Time) {
	t.mu.Lock()
	t.lastSent[choreID] = now
	t.mu.Unlock()
}

// Forget drops a chore's entry.
func (t *Tracker) Forget(choreID int64) {
	t.mu.Lock()
	delete(t.lastSent, choreID)
	t.mu.Unlock()
}

// IDs returns the chore ids currently tracked.
func (t *Tracker) IDs() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int64, 0, len(t.lastSent))
	for id := range t.lastSent {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of tracked chores.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSent)
}
