package realtime

import (
	"context"
	"sync"
	"time"

	"roamly/pkg/logger"
)

// PresenceStore receives write-through mirrors of presence changes so
// profile displays can read them without a live connection.
type PresenceStore interface {
	UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}

// PresenceTracker counts live connections per user. A user is online
// while at least one device holds a connection; the boolean only flips
// on the first connect and the last disconnect.
type PresenceTracker struct {
	mu         sync.Mutex
	live       map[string]int
	lastActive map[string]time.Time
	store      PresenceStore
}

func NewPresenceTracker(store PresenceStore) *PresenceTracker {
	return &PresenceTracker{
		live:       make(map[string]int),
		lastActive: make(map[string]time.Time),
		store:      store,
	}
}

func (t *PresenceTracker) Connect(userID string) {
	now := time.Now()

	t.mu.Lock()
	t.live[userID]++
	first := t.live[userID] == 1
	t.lastActive[userID] = now
	t.mu.Unlock()

	if first {
		t.mirror(userID, true, now)
	}
}

func (t *PresenceTracker) Disconnect(userID string) {
	now := time.Now()

	t.mu.Lock()
	if t.live[userID] > 0 {
		t.live[userID]--
	}
	last := t.live[userID] == 0
	if last {
		delete(t.live, userID)
	}
	t.lastActive[userID] = now
	t.mu.Unlock()

	if last {
		t.mirror(userID, false, now)
	}
}

// Snapshot reports whether the user has any live connection and when
// they were last active. Zero time means the user was never seen.
func (t *PresenceTracker) Snapshot(userID string) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live[userID] > 0, t.lastActive[userID]
}

// mirror is best-effort: presence is ephemeral by contract, so a failed
// write only logs.
func (t *PresenceTracker) mirror(userID string, online bool, lastSeen time.Time) {
	if t.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.store.UpdatePresence(ctx, userID, online, lastSeen); err != nil {
			logger.Warn("Failed to mirror presence for user %s: %v", userID, err)
		}
	}()
}
