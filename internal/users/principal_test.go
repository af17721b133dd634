package users

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/oidc"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

func unsignedToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

func TestResolveClaims_FederatedIDIsIgnored(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	u, err := svc.ResolveClaims(ctx, map[string]interface{}{"iss": "https://idp.example.com", "sub": "mallory", "id": float64(alice.ID)})
	require.NoError(t, err)
	require.NotEqual(t, alice.ID, u.ID)
	require.Equal(t, "mallory", u.Username)
}

func TestPrincipal_FederatedTokenCannotActAsLocalUser(t *testing.T) {
	svc := newTestService()
	alice, err := svc.Register(context.Background(), "alice", "pw")
	require.NoError(t, err)

	g := gin.New()
	ver := middleware.ChainVerifier{oidc.NewInsecureVerifier()}
	g.GET("/me", middleware.AuthMiddleware(ver), middleware.PrincipalMiddleware(svc.ResolvePrincipal), func(c *gin.Context) {
		p, _ := middleware.CurrentPrincipal(c)
		c.JSON(http.StatusOK, p)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, map[string]interface{}{
		"iss": "https://idp.example.com",
		"sub": "mallory",
		"id":  alice.ID,
	}))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got middleware.Principal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEqual(t, alice.ID, got.ID)
	require.Equal(t, "mallory", got.Username)
}
