package redis

import (
	"context"
	"fmt"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "signin:a@x.com", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("expected first request allowed with count 1, got %v/%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "signin:a@x.com", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "signin:a@x.com", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestKeysScansNamespace(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	_ = client.Set(ctx, client.AccessSessionKey("u1", "a1"), "r1", time.Hour)
	_ = client.Set(ctx, client.AccessSessionKey("u1", "a2"), "r2", time.Hour)
	_ = client.Set(ctx, client.AccessSessionKey("u2", "a3"), "r3", time.Hour)

	keys, err := client.Keys(ctx, client.SessionPattern("u1"))
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	sort.Strings(keys)
	want := []string{"ps:session:u1:access:a1", "ps:session:u1:access:a2"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	if mock.scanCalls < 2 {
		t.Fatalf("expected cursor iteration, got %d scan calls", mock.scanCalls)
	}
}

func TestSetMembership(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.SessionIndexKey("u1")

	if err := client.SAdd(ctx, key, time.Hour, "a1", "a2"); err != nil {
		t.Fatalf("sadd failed: %v", err)
	}
	if err := client.SRem(ctx, key, "a1"); err != nil {
		t.Fatalf("srem failed: %v", err)
	}
	members, err := client.SMembers(ctx, key)
	if err != nil {
		t.Fatalf("smembers failed: %v", err)
	}
	if len(members) != 1 || members[0] != "a2" {
		t.Fatalf("unexpected members %v", members)
	}
}

func TestGetDelConsumesValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.PasswordResetKey("digest")

	_ = client.Set(ctx, key, "u1", time.Minute)
	got, err := client.GetDel(ctx, key)
	if err != nil || got != "u1" {
		t.Fatalf("expected u1, got %q (%v)", got, err)
	}
	if _, err := client.GetDel(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil on second read, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Subscribe(context.Background(), "x"); err == nil {
		t.Fatal("expected subscribe to require a live connection")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.RateLimitKey("scope"):          "ps:rate_limit:scope",
		client.SessionNamespace("user"):       "ps:session:user",
		client.SessionPattern("user"):         "ps:session:user:*",
		client.AccessSessionKey("user", "a1"): "ps:session:user:access:a1",
		client.SessionIndexKey("user"):        "ps:session:user:index",
		client.PasswordResetKey("abc"):        "ps:password_reset:abc",
		client.IdempotencyKey("u|POST", "k1"): "ps:idempotency:u|POST:k1",
		client.buildKey("a", " ", "b"):        "ps:a:b",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

type mockCmdable struct {
	data        map[string]string
	sets        map[string]map[string]struct{}
	incr        map[string]int64
	expireCalls []expireCall
	published   map[string][]any
	scanCalls   int
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      make(map[string]string),
		sets:      make(map[string]map[string]struct{}),
		incr:      make(map[string]int64),
		published: make(map[string][]any),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetDel(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(m.data, key)
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			n++
		}
		delete(m.data, key)
		delete(m.sets, key)
	}
	return redis.NewIntResult(n, nil)
}

func (m *mockCmdable) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[fmt.Sprint(member)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	for _, member := range members {
		delete(m.sets[key], fmt.Sprint(member))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	out := []string{}
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return redis.NewStringSliceResult(out, nil)
}

// Scan returns one matching key per call to exercise cursor handling.
func (m *mockCmdable) Scan(_ context.Context, cursor uint64, match string, _ int64) *redis.ScanCmd {
	m.scanCalls++
	keys := []string{}
	for key := range m.data {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	for key := range m.sets {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if int(cursor) >= len(keys) {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	next := cursor + 1
	if int(next) >= len(keys) {
		next = 0
	}
	return redis.NewScanCmdResult([]string{keys[cursor]}, next, nil)
}

func (m *mockCmdable) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	m.published[channel] = append(m.published[channel], message)
	return redis.NewIntResult(1, nil)
}
