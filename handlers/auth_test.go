package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/tokens"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/users"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.SecretKey = "test-secret"
	cfg.Auth.Algorithm = "HS256"
	cfg.Auth.AccessTokenTTL = 30 * time.Minute
	cfg.Auth.RefreshTokenTTL = time.Hour
	return cfg
}

func newAuthEngine(t *testing.T) *gin.Engine {
	cfg := testConfig()
	usersSvc := users.NewService(users.NewMemoryUserRepository()).WithHashCost(bcrypt.MinCost)
	sessSvc := sessions.NewService(sessions.NewMemoryRepository())
	g := gin.New()
	NewAuthHandler(cfg, usersSvc, sessSvc).Register(g,
		middleware.AuthMiddleware(tokens.NewVerifier(cfg)),
		middleware.PrincipalMiddleware(usersSvc.ResolvePrincipal),
	)
	return g
}

func postJSON(g *gin.Engine, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, g *gin.Engine, username, password string) TokenResponse {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tr TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	return tr
}

func getMe(g *gin.Engine, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	g := newAuthEngine(t)

	w := postJSON(g, "/auth/", `{"username":"alice","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"id":1,"username":"alice"}`, w.Body.String())
	require.NotContains(t, w.Body.String(), "pw")

	require.Equal(t, http.StatusConflict, postJSON(g, "/auth/", `{"username":"alice","password":"other"}`, "").Code)
	require.Equal(t, http.StatusBadRequest, postJSON(g, "/auth/", `{"username":"bob"}`, "").Code)
	require.Equal(t, http.StatusBadRequest, postJSON(g, "/auth/", `{"username":"   ","password":"pw"}`, "").Code)
}

func TestToken_FormAndJSON(t *testing.T) {
	g := newAuthEngine(t)
	require.Equal(t, http.StatusCreated, postJSON(g, "/auth/", `{"username":"alice","password":"pw"}`, "").Code)

	tr := login(t, g, "alice", "pw")
	require.Equal(t, "bearer", tr.TokenType)
	require.Equal(t, 1800, tr.ExpiresIn)
	require.NotEmpty(t, tr.RefreshToken)

	claims, err := tokens.ParseAccessToken(testConfig(), tr.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, int64(1), claims.UserID)

	w := postJSON(g, "/auth/token", `{"username":"alice","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(g, "/auth/token", `{"username":"alice","password":"nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	require.JSONEq(t, `{"error":"Incorrect username or password"}`, w.Body.String())

	require.Equal(t, http.StatusUnauthorized, postJSON(g, "/auth/token", `{"username":"ghost","password":"pw"}`, "").Code)
}

func TestMe(t *testing.T) {
	g := newAuthEngine(t)
	postJSON(g, "/auth/", `{"username":"alice","password":"pw"}`, "")
	tr := login(t, g, "alice", "pw")

	w := getMe(g, tr.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":1,"username":"alice"}`, w.Body.String())

	require.Equal(t, http.StatusUnauthorized, getMe(g, "garbage").Code)
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	g := newAuthEngine(t)
	postJSON(g, "/auth/", `{"username":"alice","password":"pw"}`, "")
	tr := login(t, g, "alice", "pw")

	w := postJSON(g, "/auth/refresh", `{"refresh_token":"`+tr.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var next TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	require.NotEqual(t, tr.RefreshToken, next.RefreshToken)
	require.Equal(t, http.StatusOK, getMe(g, next.AccessToken).Code)

	w = postJSON(g, "/auth/refresh", `{"refresh_token":"`+tr.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	require.Equal(t, http.StatusBadRequest, postJSON(g, "/auth/refresh", `{}`, "").Code)
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	g := newAuthEngine(t)
	postJSON(g, "/auth/", `{"username":"alice","password":"pw"}`, "")
	tr := login(t, g, "alice", "pw")
	require.Equal(t, http.StatusOK, getMe(g, tr.AccessToken).Code)

	w := postJSON(g, "/auth/logout", `{"refresh_token":"`+tr.RefreshToken+`"}`, tr.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	blocked, err := sessions.IsAccessTokenBlacklisted(t.Context(), tr.AccessToken)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, http.StatusUnauthorized, getMe(g, tr.AccessToken).Code)

	// the refresh session is gone too
	require.Equal(t, http.StatusUnauthorized, postJSON(g, "/auth/refresh", `{"refresh_token":"`+tr.RefreshToken+`"}`, "").Code)
}
