package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), sets: make(map[string]map[string]struct{})}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *mockStore) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			out = append(out, key)
		}
	}
	for key := range m.sets {
		if ok, _ := path.Match(pattern, key); ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStore) AccessSessionKey(userID, accessID string) string {
	return fmt.Sprintf("sess:%s:access:%s", userID, accessID)
}

func (m *mockStore) SessionIndexKey(userID string) string {
	return fmt.Sprintf("sess:%s:index", userID)
}

func (m *mockStore) SessionPattern(userID string) string {
	return fmt.Sprintf("sess:%s:*", userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *mockStore, *recordingPublisher) {
	t.Helper()
	store := newMockStore()
	pub := &recordingPublisher{}
	manager, err := newManager(store, store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120}, pub)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, store, pub
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	store := newMockStore()
	if _, err := newManager(store, store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}, nil); err == nil {
		t.Fatalf("expected error when refresh ttl does not exceed access ttl")
	}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, store, pub := newTestManager(t)

	ctx := context.Background()
	userID, accessID := "user-1", "access-123"
	token, err := manager.Generate(ctx, userID, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stored := store.data[store.AccessSessionKey(userID, accessID)]; stored != token {
		t.Fatalf("expected stored token %q, got %q", token, stored)
	}
	if _, ok := store.sets[store.SessionIndexKey(userID)][accessID]; !ok {
		t.Fatalf("expected access id indexed")
	}

	if _, _, err := manager.Rotate(ctx, userID, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, userID, "missing", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token for unknown session, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, userID, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(userID, accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if stored := store.data[store.AccessSessionKey(userID, newAccessID)]; stored != newToken {
		t.Fatalf("expected new token stored, got %q", stored)
	}
	if _, ok := store.sets[store.SessionIndexKey(userID)][accessID]; ok {
		t.Fatalf("old access id still indexed")
	}

	got := pub.types()
	if len(got) != 2 || got[0] != EventSignedIn || got[1] != EventTokenRefreshed {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestManagerRevokeAllAndPurge(t *testing.T) {
	manager, store, pub := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2"} {
		if _, err := manager.Generate(ctx, "user-1", id); err != nil {
			t.Fatalf("generate %s: %v", id, err)
		}
	}
	if _, err := manager.Generate(ctx, "user-2", "b1"); err != nil {
		t.Fatalf("generate other user: %v", err)
	}
	// orphan record that never reached the index
	store.data[store.AccessSessionKey("user-1", "orphan")] = "tok"

	revoked, err := manager.RevokeAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", revoked)
	}

	remaining, err := manager.Remaining(ctx, "user-1")
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if len(remaining) != 1 || !strings.HasSuffix(remaining[0], "orphan") {
		t.Fatalf("expected only the orphan left, got %v", remaining)
	}

	purged, err := manager.Purge(ctx, "user-1")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged key, got %d", purged)
	}
	if ok, _ := manager.HasSession(ctx, "user-2", "b1"); !ok {
		t.Fatalf("other user's session must survive")
	}

	last := pub.events[len(pub.events)-1]
	if last.Type != EventSignedOut || last.UserID != "user-1" || last.AccessID != "" {
		t.Fatalf("expected global sign-out event, got %+v", last)
	}
}

func TestManagerRevokeReportsPublishFailure(t *testing.T) {
	manager, _, pub := newTestManager(t)
	ctx := context.Background()
	if _, err := manager.Generate(ctx, "user-1", "a1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub.err = errors.New("bus down")

	if err := manager.Revoke(ctx, "user-1", "a1"); err == nil {
		t.Fatalf("expected publish error to surface")
	}
	if ok, _ := manager.HasSession(ctx, "user-1", "a1"); ok {
		t.Fatalf("session should be deleted even when publish fails")
	}
}
