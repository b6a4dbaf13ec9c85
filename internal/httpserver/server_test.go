package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eportfolio/backend/internal/config"
	authdomain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/infrastructure/memory"
	"eportfolio/backend/internal/infrastructure/password"
	"eportfolio/backend/internal/infrastructure/ratelimit"
	"eportfolio/backend/internal/infrastructure/token"
	authusecase "eportfolio/backend/internal/usecase/auth"
	userusecase "eportfolio/backend/internal/usecase/user"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

type testEnv struct {
	server *httptest.Server
	clock  *testClock
}

func newTestEnv(t *testing.T, opts ...authusecase.Option) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Now().UTC()}
	tokens, err := token.NewJWTManager(testSecret, "eportfolio-test", token.WithClock(clock.Now))
	require.NoError(t, err)

	dir := memory.NewDirectory()
	hasher := password.NewBcrypt(bcrypt.MinCost)
	users := userusecase.NewService(dir, hasher)
	_, err = users.SeedDemoAccounts(context.Background())
	require.NoError(t, err)

	cfg := config.Config{HTTP: config.HTTPConfig{Port: "0", AllowedOrigins: []string{"*"}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, authusecase.NewService(dir, hasher, tokens, opts...), users, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: userusecase.DemoPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok, ok := body["token"].(string)
	require.True(t, ok)
	return tok
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		for _, path := range []string{"/login", "/api/login"} {
			resp, body := env.do(t, http.MethodPost, path, "", loginRequest{Email: "student@example.com", Password: "password123"})
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.Equal(t, "Login successful", body["message"])
			assert.NotEmpty(t, body["token"])

			user, ok := body["user"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "student@example.com", user["email"])
			assert.Equal(t, "student", user["role"])
			assert.Equal(t, "alex", user["name"])
			assert.NotEmpty(t, user["id"])
			assert.NotEmpty(t, user["avatarUrl"])
			assert.NotContains(t, user, "passwordHash")
			assert.NotContains(t, user, "PasswordHash")
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "student@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, map[string]any{"message": "Invalid credentials"}, body)

		resp, body = env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "nobody@example.com", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, map[string]any{"message": "Invalid credentials"}, body)
	})

	t.Run("email is case sensitive", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "STUDENT@example.com", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/login", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid request body.", body["message"])
	})
}

func TestProfileAccessGuard(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "lecturer@example.com")

	t.Run("valid token", func(t *testing.T) {
		for _, path := range []string{"/profile", "/api/profile"} {
			resp, body := env.do(t, http.MethodGet, path, tok, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			user, ok := body["user"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "lecturer@example.com", user["email"])
			assert.Equal(t, "lecturer", user["role"])
			assert.NotEmpty(t, user["id"])
			iat, _ := user["iat"].(float64)
			exp, _ := user["exp"].(float64)
			assert.Equal(t, float64(3600), exp-iat)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Access denied. No token provided.", body["message"])
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/profile", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Basic "+tok)
		resp, err := env.server.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("tampered token", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/profile", tok+"x", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Invalid token.", body["message"])
	})

	t.Run("foreign secret", func(t *testing.T) {
		foreign, err := token.NewJWTManager("another-secret", "eportfolio-test")
		require.NoError(t, err)
		forged, _, err := foreign.Issue(&authdomain.User{ID: "x", Email: "admin@example.com", Role: authdomain.RoleAdmin})
		require.NoError(t, err)

		resp, body := env.do(t, http.MethodGet, "/api/profile", forged, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Invalid token.", body["message"])
	})

	t.Run("expired token", func(t *testing.T) {
		saved := env.clock.Now()
		t.Cleanup(func() { env.clock.Set(saved) })
		env.clock.Set(saved.Add(token.Lifetime + time.Second))

		resp, body := env.do(t, http.MethodGet, "/api/profile", tok, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Invalid token.", body["message"])
	})
}

func TestDashboards(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.login(t, "lecturer@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/dashboards/lecturer", lecturer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lecturer", body["role"])
	assert.Equal(t, "/lecturer", body["defaultPath"])
	nav, ok := body["navigation"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, nav)
	first, _ := nav[0].(map[string]any)
	assert.Equal(t, "/lecturer", first["path"])

	resp, body = env.do(t, http.MethodGet, "/api/dashboards/admin", lecturer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Insufficient role.", body["message"])

	resp, body = env.do(t, http.MethodGet, "/api/dashboards/dean", lecturer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Unknown dashboard.", body["message"])

	resp, _ = env.do(t, http.MethodGet, "/api/dashboards/lecturer", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin@example.com")
	student := env.login(t, "student@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/admin/users", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Insufficient role.", body["message"])

	resp, body = env.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, _ := body["users"].([]any)
	assert.Len(t, users, 5)

	resp, body = env.do(t, http.MethodGet, "/api/admin/users?role=industry", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, _ = body["users"].([]any)
	assert.Len(t, users, 1)

	resp, _ = env.do(t, http.MethodGet, "/api/admin/users?role=dean", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	create := createUserRequest{Email: "new.lecturer@example.com", Name: "Dr. New", Password: "pw-123456", Role: "lecturer"}
	resp, body = env.do(t, http.MethodPost, "/api/admin/users", admin, create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created, _ := body["user"].(map[string]any)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/users", admin, create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/users", admin, createUserRequest{Email: "x@example.com", Password: "pw", Role: "dean"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/admin/users/"+id, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched, _ := body["user"].(map[string]any)
	assert.Equal(t, "new.lecturer@example.com", fetched["email"])

	resp, _ = env.do(t, http.MethodGet, "/api/admin/users/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The new account can log in straight away.
	resp, _ = env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "new.lecturer@example.com", Password: "pw-123456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter, err := ratelimit.NewRedisLimiter(rdb, 2, time.Minute)
	require.NoError(t, err)

	env := newTestEnv(t, authusecase.WithLoginLimiter(limiter))
	bad := loginRequest{Email: "prodi@example.com", Password: "nope"}

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodPost, "/api/login", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many login attempts.", body["message"])

	// Another account is unaffected and a success clears its counter.
	env.login(t, "industry@example.com")
	assert.False(t, mr.Exists("login-attempts:industry@example.com"))
}

func TestHealthMetricsAndCORS(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	env.login(t, "student@example.com")
	env.do(t, http.MethodGet, "/api/profile", "", nil)

	metricsResp, err := env.server.Client().Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `eportfolio_logins_total{outcome="success"} 1`)
	assert.Contains(t, text, `eportfolio_access_guard_rejections_total{reason="missing_token"} 1`)
	assert.Contains(t, text, `route="/api/login"`)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	preflight, err := env.server.Client().Do(req)
	require.NoError(t, err)
	preflight.Body.Close()
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, "http://localhost:5173", preflight.Header.Get("Access-Control-Allow-Origin"))
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer   abc "))
	assert.Empty(t, extractBearerToken("Bearer"))
	assert.Empty(t, extractBearerToken("Token abc"))
	assert.Empty(t, extractBearerToken(""))
}
