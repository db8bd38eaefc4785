package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/popspot-backend/api/controllers"
	"github.com/angelmondragon/popspot-backend/internal/stores"
	pkgAuth "github.com/angelmondragon/popspot-backend/pkg/auth"
	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
)

const testAPIKey = "public-key"

type memoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	counter map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counter: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, key string) string { return "idem:" + scope + ":" + key }

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter[key]++
	return m.counter[key], nil
}

func (m *memoryStore) RateLimitKey(scope string) string { return "rl:" + scope }

type liveSessions struct{}

func (liveSessions) Resolve(_ context.Context, userID, accessID string) (session.Snapshot, error) {
	return session.Snapshot{State: session.StateAuthenticated, UserID: userID, AccessID: accessID}, nil
}

type countingStores struct {
	stores.Service
	mu      sync.Mutex
	creates int
}

func (s *countingStores) List(context.Context, stores.ListParams) (*stores.ListResult, error) {
	return &stores.ListResult{Stores: []stores.StoreDTO{}}, nil
}

func (s *countingStores) Create(_ context.Context, actor uuid.UUID, input stores.CreateStoreInput) (*stores.StoreDTO, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return &stores.StoreDTO{ID: uuid.New(), SellerID: actor, Name: input.Name}, nil
}

type routerHarness struct {
	handler http.Handler
	cfg     *config.Config
	stores  *countingStores
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>popspot</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(static, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.StaticDir = static
	cfg.App.FrontendURL = "https://popspot.test"
	cfg.Public.APIKey = testAPIKey
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "popspot", ExpirationMinutes: 15}
	cfg.Session.CookieName = "popspot_session"
	cfg.RateLimit.SignInWindow = time.Minute
	cfg.RateLimit.SignInLimit = 2
	cfg.Storage.MaxImages = 10
	cfg.Storage.MaxFileBytes = 5 << 20

	reg := prometheus.NewRegistry()
	st := &countingStores{}
	handler := NewRouter(Dependencies{
		Config:   cfg,
		Logger:   logger.Nop(),
		Gatherer: reg,
		Metrics:  metrics.NewHTTPMetrics(reg),
		Store:    newMemoryStore(),
		Sessions: liveSessions{},
		Ready:    map[string]controllers.Pinger{},
		Stores:   st,
	})
	return &routerHarness{handler: handler, cfg: cfg, stores: st}
}

func (h *routerHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *routerHarness) token(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Email:    "seller@popspot.test",
		Role:     enums.ProfileRoleSeller,
		AccessID: session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func apiRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", testAPIKey)
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	h := newRouterHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

func TestAPIRequiresPublicKey(t *testing.T) {
	h := newRouterHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(apiRequest(http.MethodGet, "/api/v1/config", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"apiBaseUrl"`)
}

func TestPublicStoreListIsAnonymous(t *testing.T) {
	h := newRouterHarness(t)
	w := h.do(apiRequest(http.MethodGet, "/api/v1/stores?page=1", ""))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStoreCreateRequiresSession(t *testing.T) {
	h := newRouterHarness(t)
	body := `{"name":"Cafe","category":"food","location":"Seoul","start_date":"2025-03-01","end_date":"2025-03-10"}`

	w := h.do(apiRequest(http.MethodPost, "/api/v1/stores", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := apiRequest(http.MethodPost, "/api/v1/stores", body)
	req.Header.Set("Authorization", "Bearer "+h.token(t))
	w = h.do(req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestStoreCreateReplaysIdempotentRequest(t *testing.T) {
	h := newRouterHarness(t)
	token := h.token(t)
	body := `{"name":"Cafe","category":"food","location":"Seoul","start_date":"2025-03-01","end_date":"2025-03-10"}`

	var first string
	for i := 0; i < 2; i++ {
		req := apiRequest(http.MethodPost, "/api/v1/stores", body)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "create-1")
		w := h.do(req)
		require.Equal(t, http.StatusCreated, w.Code)
		if i == 0 {
			first = w.Body.String()
		} else {
			assert.Equal(t, first, w.Body.String())
		}
	}
	assert.Equal(t, 1, h.stores.creates)
}

func TestSignInRateLimited(t *testing.T) {
	h := newRouterHarness(t)
	body := `{"email":"a@popspot.test"}`

	var last int
	for i := 0; i < 3; i++ {
		last = h.do(apiRequest(http.MethodPost, "/api/v1/auth/signin", body)).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	h := newRouterHarness(t)
	w := h.do(apiRequest(http.MethodGet, "/api/v1/nope", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestPages(t *testing.T) {
	h := newRouterHarness(t)

	cases := []struct {
		name     string
		path     string
		cookie   bool
		status   int
		location string
	}{
		{name: "home", path: "/", status: http.StatusOK},
		{name: "auth", path: "/auth", status: http.StatusOK},
		{name: "callback", path: "/auth/callback", status: http.StatusOK},
		{name: "reset", path: "/reset-password", status: http.StatusOK},
		{name: "protected anonymous", path: "/profile", status: http.StatusFound, location: "/auth"},
		{name: "protected edit anonymous", path: "/stores/abc/edit", status: http.StatusFound, location: "/auth"},
		{name: "protected with cookie", path: "/stores/new", cookie: true, status: http.StatusOK},
		{name: "asset", path: "/assets/app.js", status: http.StatusOK},
		{name: "unknown", path: "/does/not/exist", status: http.StatusFound, location: "/"},
		{name: "traversal", path: "/../../etc/passwd", status: http.StatusFound, location: "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.cookie {
				req.AddCookie(&http.Cookie{Name: h.cfg.Session.CookieName, Value: "token"})
			}
			w := h.do(req)
			assert.Equal(t, tc.status, w.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, w.Header().Get("Location"))
			}
		})
	}
}
