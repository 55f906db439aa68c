package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/config"
	"github.com/oggyb/destined/internal/logger"
	"github.com/oggyb/destined/internal/metrics"
	"github.com/oggyb/destined/internal/server"
	"github.com/oggyb/destined/internal/service/liking"
	"github.com/oggyb/destined/internal/service/profilematch"
	"github.com/oggyb/destined/internal/testutil"
)

type fixture struct {
	appCtx *app.AppContext
	router *gin.Engine
	jwt    *auth.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	cfg := config.New()
	rc, _ := testutil.NewTestCache(t)
	appCtx := app.New(cfg, testutil.NewTestDB(t), rc, logger.Discard(), metrics.New(reg))
	jwt := auth.NewJWTService(cfg.Auth)

	return &fixture{
		appCtx: appCtx,
		jwt:    jwt,
		router: server.NewRouter(appCtx, jwt, reg, liking.NewRegistrar(appCtx), profilematch.NewRegistrar(appCtx)),
	}
}

func (f *fixture) do(t *testing.T, method, path string, userID uint64, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := f.jwt.Issue(auth.Identity{UserID: userID, Role: auth.RoleUser})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestRouter_Healthz(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_RequiresAuth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/liking/get-all-likings", 0, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unauthorized Access, Token is missing", body["message"])
}

func TestRouter_LikeFlow(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.appCtx.DB, "Alice", "Music", "Rock")
	b := testutil.CreateUser(t, f.appCtx.DB, "Bob", "Music", "Rock")

	code, body := f.do(t, http.MethodPost, "/api/liking/1/like-user", a.ID, `{"targetUserId": 2}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "User Liked Successfully", body["message"])

	code, body = f.do(t, http.MethodPost, "/api/liking/2/like-user", b.ID, `{"targetUserId": "1"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["liking"].(map[string]any)["isMatch"])

	code, body = f.do(t, http.MethodGet, "/api/liking/get-all-likings", a.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["likings"], 2)

	code, body = f.do(t, http.MethodGet, "/api/liking/2/like-count", b.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = f.do(t, http.MethodPost, "/api/liking/1/dislike-user", a.ID, `{"targetUserId": 2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User disliked successfully", body["message"])
}

func TestRouter_ErrorStatuses(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.appCtx.DB, "Alice")

	code, body := f.do(t, http.MethodPost, "/api/liking/1/like-user", a.ID, `{"targetUserId": "x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid user ID format", body["message"])

	code, _ = f.do(t, http.MethodPost, "/api/liking/1/like-user", a.ID, `{"targetUserId": 1}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = f.do(t, http.MethodPost, "/api/liking/1/like-user", a.ID, `{"targetUserId": 99}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/api/liking/1/like-user", 5, `{"targetUserId": 2}`)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouter_ProfileMatches(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.appCtx.DB, "Alice", "Music", "Rock")
	testutil.CreateUser(t, f.appCtx.DB, "Bob", "Music", "Rock", "Travel", "Asia")
	c := testutil.CreateUser(t, f.appCtx.DB, "Carol")

	code, body := f.do(t, http.MethodGet, "/api/profile-match/1/get-profile-matches", a.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Matches found and updated", body["message"])
	require.Len(t, body["profileMatches"], 1)
	match := body["profileMatches"].([]any)[0].(map[string]any)
	assert.InDelta(t, 66.67, match["matchScore"], 0.01)
	assert.Equal(t, false, match["isPerfectMatch"])

	code, body = f.do(t, http.MethodGet, "/api/profile-match/3/get-profile-matches", c.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "No interests found for this user", body["message"])
}

func TestRouter_Metrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", 0, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{endpoint="/healthz",method="GET",status="200"} 1`)
}

func TestStartHTTPServer_StopsOnCancel(t *testing.T) {
	cfg := config.New()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = "0"
	cfg.HTTP.ShutdownTimeout = time.Second
	appCtx := app.New(cfg, nil, nil, logger.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.StartHTTPServer(ctx, appCtx, http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
