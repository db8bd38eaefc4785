package session

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

// State is the resolved auth state of one access session.
type State string

const (
	StateUnknown       State = "unknown"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Snapshot is what the tracker currently believes about an access session.
type Snapshot struct {
	State       State
	UserID      string
	AccessID    string
	ConfirmedAt time.Time
}

func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Tracker is the process-wide view of auth state. It is fed by the auth event
// stream and falls back to the session store on cache miss, so every consumer
// in the process shares one subscription and one answer.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Snapshot
	checker Checker
	window  time.Duration
	retain  time.Duration
	logg    *logger.Logger
	now     func() time.Time
}

func NewTracker(checker Checker, window time.Duration, logg *logger.Logger) *Tracker {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Tracker{
		entries: make(map[string]Snapshot),
		checker: checker,
		window:  window,
		retain:  window,
		logg:    logg,
		now:     time.Now,
	}
}

// RetainAnonymous sets how long a signed-out access id stays pinned anonymous.
// It should cover the access token lifetime; past that the token no longer
// verifies and the entry is pruned.
func (t *Tracker) RetainAnonymous(d time.Duration) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > t.window {
		t.retain = d
	}
	return t
}

// Snapshot returns the cached state without touching the session store.
func (t *Tracker) Snapshot(accessID string) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.entries[accessID]
	if !ok {
		return Snapshot{State: StateUnknown, AccessID: accessID}
	}
	return snap
}

// Resolve answers whether the access session is live. Authenticated answers
// are trusted for the reconfirm window; anonymous answers are final for that
// access id.
func (t *Tracker) Resolve(ctx context.Context, userID, accessID string) (Snapshot, error) {
	snap := t.Snapshot(accessID)
	switch snap.State {
	case StateAnonymous:
		return snap, nil
	case StateAuthenticated:
		if snap.UserID == userID && t.now().Sub(snap.ConfirmedAt) < t.window {
			return snap, nil
		}
	}

	ok, err := t.checker.HasSession(ctx, userID, accessID)
	if err != nil {
		return Snapshot{State: StateUnknown, UserID: userID, AccessID: accessID}, err
	}
	return t.store(userID, accessID, ok), nil
}

// Forget marks an access session anonymous ahead of the remote revocation.
func (t *Tracker) Forget(userID, accessID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[accessID] = Snapshot{State: StateAnonymous, UserID: userID, AccessID: accessID, ConfirmedAt: t.now()}
}

// Apply folds one auth event into the cache.
func (t *Tracker) Apply(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventSignedIn, EventTokenRefreshed:
		if ev.AccessID != "" {
			t.store(ev.UserID, ev.AccessID, true)
		}
	case EventUserUpdated:
		t.drop(ev.UserID, "")
	case EventSignedOut:
		t.reconfirm(ctx, ev.UserID, ev.AccessID)
	}
}

// Run consumes events until ctx ends or the stream closes, pruning stale
// entries once per reconfirm window.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) {
	interval := t.window
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Prune(); n > 0 {
				t.logg.Debug(t.logg.WithField(ctx, "evicted", n), "session.tracker_pruned")
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.Apply(ctx, ev)
		}
	}
}

// Prune evicts authenticated entries past the reconfirm window and anonymous
// entries past the retention period. It returns the number evicted.
func (t *Tracker) Prune() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for id, snap := range t.entries {
		ttl := t.window
		if snap.State == StateAnonymous {
			ttl = t.retain
		}
		if now.Sub(snap.ConfirmedAt) >= ttl {
			delete(t.entries, id)
			evicted++
		}
	}
	return evicted
}

// Len reports how many access sessions are cached.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// reconfirm re-reads each affected session before trusting a sign-out, since
// the event can arrive ahead of, or after, the store it describes.
func (t *Tracker) reconfirm(ctx context.Context, userID, accessID string) {
	for _, id := range t.affected(userID, accessID) {
		ok, err := t.checker.HasSession(ctx, userID, id)
		if err != nil {
			t.logg.Warn(t.logg.WithAccessID(t.logg.WithUserID(ctx, userID), id), "session.reconfirm_failed")
			t.drop(userID, id)
			continue
		}
		t.store(userID, id, ok)
	}
}

func (t *Tracker) affected(userID, accessID string) []string {
	if accessID != "" {
		return []string{accessID}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0)
	for id, snap := range t.entries {
		if snap.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Tracker) store(userID, accessID string, live bool) Snapshot {
	state := StateAnonymous
	if live {
		state = StateAuthenticated
	}
	snap := Snapshot{State: state, UserID: userID, AccessID: accessID, ConfirmedAt: t.now()}
	t.mu.Lock()
	t.entries[accessID] = snap
	t.mu.Unlock()
	return snap
}

func (t *Tracker) drop(userID, accessID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if accessID != "" {
		delete(t.entries, accessID)
		return
	}
	for id, snap := range t.entries {
		if snap.UserID == userID {
			delete(t.entries, id)
		}
	}
}
