package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	redisclient "github.com/angelmondragon/popspot-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(userID, accessID string) string
	SessionIndexKey(userID string) string
	SessionPattern(userID string) string
}

// Manager owns the server-side session records: one refresh token per access
// session, indexed per user, all under the user's session namespace.
type Manager struct {
	store  sessionStore
	keyer  sessionKeyer
	events Publisher
	ttl    time.Duration
}

// Checker exposes the read-only surface needed by the tracker and middleware.
type Checker interface {
	HasSession(ctx context.Context, userID, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig, events Publisher) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, client, cfg, events)
}

func newManager(store sessionStore, keyer sessionKeyer, cfg config.JWTConfig, events Publisher) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: store, keyer: keyer, events: events, ttl: ttl}, nil
}

// Generate creates a refresh token for the access session and announces the sign-in.
func (m *Manager) Generate(ctx context.Context, userID, accessID string) (string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("user id and access id are required")
	}
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(userID, accessID), token, m.ttl); err != nil {
		return "", err
	}
	if err := m.store.SAdd(ctx, m.keyer.SessionIndexKey(userID), m.ttl, accessID); err != nil {
		return "", err
	}
	// Peers fall back to a direct lookup on cache miss, so a lost announcement is harmless.
	_ = m.publish(ctx, EventSignedIn, userID, accessID)
	return token, nil
}

// Rotate validates the provided refresh token, invalidates the prior session, and issues a new access/refresh pair.
func (m *Manager) Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(userID, oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return "", "", wrapNotFound(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := generateRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(userID, newAccessID), newToken, m.ttl); err != nil {
		return "", "", err
	}
	if err := m.store.SAdd(ctx, m.keyer.SessionIndexKey(userID), m.ttl, newAccessID); err != nil {
		return "", "", err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", err
	}
	if err := m.store.SRem(ctx, m.keyer.SessionIndexKey(userID), oldAccessID); err != nil {
		return "", "", err
	}

	_ = m.publish(ctx, EventTokenRefreshed, userID, newAccessID)
	return newAccessID, newToken, nil
}

// Revoke deletes one access session.
func (m *Manager) Revoke(ctx context.Context, userID, accessID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("user id and access id are required")
	}
	err := multierr.Combine(
		m.store.Del(ctx, m.keyer.AccessSessionKey(userID, accessID)),
		m.store.SRem(ctx, m.keyer.SessionIndexKey(userID), accessID),
	)
	if err != nil {
		return err
	}
	return m.publish(ctx, EventSignedOut, userID, accessID)
}

// RevokeAll deletes every indexed session of the user and announces a global sign-out.
func (m *Manager) RevokeAll(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}
	indexKey := m.keyer.SessionIndexKey(userID)
	accessIDs, err := m.store.SMembers(ctx, indexKey)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return 0, err
	}
	keys := make([]string, 0, len(accessIDs)+1)
	for _, id := range accessIDs {
		keys = append(keys, m.keyer.AccessSessionKey(userID, id))
	}
	keys = append(keys, indexKey)
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(accessIDs), m.publish(ctx, EventSignedOut, userID, "")
}

// Purge deletes every key in the user's session namespace, including records
// that never made it into the index.
func (m *Manager) Purge(ctx context.Context, userID string) (int, error) {
	keys, err := m.Remaining(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Remaining lists the keys still present in the user's session namespace.
func (m *Manager) Remaining(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return m.store.Keys(ctx, m.keyer.SessionPattern(userID))
}

// HasSession reports whether the access session still has a refresh record.
func (m *Manager) HasSession(ctx context.Context, userID, accessID string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("user id and access id are required")
	}
	return m.store.Exists(ctx, m.keyer.AccessSessionKey(userID, accessID))
}

func (m *Manager) publish(ctx context.Context, typ EventType, userID, accessID string) error {
	if m.events == nil {
		return nil
	}
	return m.events.Publish(ctx, Event{Type: typ, UserID: userID, AccessID: accessID, At: time.Now().UTC()})
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) || errors.Is(err, ErrInvalidRefreshToken) {
		return ErrInvalidRefreshToken
	}
	return err
}
