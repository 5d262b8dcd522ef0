package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"developertok/internal/bootstrap"
	"developertok/internal/repository"
)

func testConfig() bootstrap.Config {
	return bootstrap.Config{
		AppEnv:         bootstrap.EnvDevelopment,
		JwtSecret:      "test-secret",
		TokenTTL:       7 * 24 * time.Hour,
		BcryptCost:     bcrypt.MinCost,
		IsLocalCors:    true,
		CorsOrigins:    []string{"*"},
		MetricsEnabled: true,
	}
}

func newTestRouter(t *testing.T, cfg bootstrap.Config) *chi.Mux {
	t.Helper()
	app, err := newApplication(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	r := chi.NewRouter()
	initializeDeliveryHandlers(app, prometheus.NewRegistry()).Router(r, cfg.IsLocalCors, cfg.CorsOrigins, cfg.MetricsEnabled)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterThenDuplicateEmail(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := do(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "password")
	progress := user["progress"].(map[string]any)
	assert.EqualValues(t, 0, progress["lessonsCompleted"])
	assert.EqualValues(t, 0, progress["totalPoints"])
	assert.EqualValues(t, 1, progress["level"])
	activity := user["recentActivity"].([]any)
	require.Len(t, activity, 1)
	assert.Equal(t, "Welcome to DeveloperTok", activity[0].(map[string]any)["title"])

	w = do(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice2", "email": "alice@x.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists with this email", decode(t, w)["message"])
}

func TestFullProgressFlow(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := do(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "bob", "email": "bob@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/login", "", map[string]string{"email": "bob@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = do(t, r, http.MethodPost, "/api/user/progress", token, map[string]any{"totalPoints": 1200, "currentStreak": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Progress updated successfully", body["message"])
	progress := body["progress"].(map[string]any)
	assert.EqualValues(t, 3, progress["level"])
	assert.EqualValues(t, 4, progress["longestStreak"])

	w = do(t, r, http.MethodPost, "/api/user/lessons/complete", token, map[string]any{"id": "l1", "title": "Channels"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	progress = decode(t, w)["progress"].(map[string]any)
	assert.EqualValues(t, 1250, progress["totalPoints"])
	assert.EqualValues(t, 5, progress["currentStreak"])

	w = do(t, r, http.MethodPost, "/api/user/badges", token, map[string]any{"name": "Gopher"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)
	assert.Equal(t, "bob", user["username"])
	assert.EqualValues(t, 1, user["progress"].(map[string]any)["badges"])
	assert.Len(t, user["recentActivity"].([]any), 3)

	w = do(t, r, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithRedisTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisUrl = mr.Addr()
	r := newTestRouter(t, cfg)

	w := do(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "carol", "email": "carol@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/logout", token, nil).Code)
	assert.Len(t, mr.Keys(), 1)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/user", token, nil).Code)
}

func TestAuthErrors(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := do(t, r, http.MethodGet, "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token, authorization denied", decode(t, w)["message"])

	w = do(t, r, http.MethodGet, "/api/user", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/login", "", map[string]string{"email": "none@x.com", "password": "pw123456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, testConfig())

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/readyz", "", nil).Code)

	w := do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "developertok_http_requests_total"))
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, testConfig())
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/nothing", "", nil).Code)
}

func TestNewApplicationUsesMemoryStore(t *testing.T) {
	app, err := newApplication(context.Background(), testConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer app.Close()

	_, ok := app.accounts.(*repository.MemoryAccountStorage)
	assert.True(t, ok)
	_, ok = app.tokens.(*repository.MemoryTokenStorage)
	assert.True(t, ok)
}

func TestNewApplicationMongoGivesUp(t *testing.T) {
	cfg := testConfig()
	cfg.MongoUri = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100&connectTimeoutMS=100"
	cfg.MongoConnectAttempts = 2
	cfg.MongoRetryDelay = 10 * time.Millisecond

	_, err := newApplication(context.Background(), cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestListenWithFallback(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ln, err := listenWithFallback(port, 5, zap.NewNop().Sugar())
	if err != nil {
		t.Skipf("no free port next to %d: %v", port, err)
	}
	defer ln.Close()
	assert.NotEqual(t, fmt.Sprintf(":%d", port), ln.Addr().String())
	assert.Greater(t, ln.Addr().(*net.TCPAddr).Port, port)

	_, err = listenWithFallback(port, 1, zap.NewNop().Sugar())
	assert.Error(t, err)
}
