package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts a single raw token
type fakeVerifier struct {
	accept string
	claims map[string]interface{}
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == f.accept {
		return &fakeToken{data: f.claims}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func goodVerifier() *fakeVerifier {
	return &fakeVerifier{accept: "goodtoken", claims: map[string]interface{}{"sub": "alice", "id": float64(7)}}
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(goodVerifier()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "Bearer", rw.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "BadHeader")
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(goodVerifier()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(goodVerifier()), func(c *gin.Context) {
		claims, ok := c.Get(ClaimsKey)
		require.True(t, ok)
		require.Equal(t, "goodtoken", c.GetString(RawTokenKey))
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(client)
	defer sessions.SetBlacklistClient(nil)

	token := "goodtoken"
	require.NoError(t, sessions.BlacklistAccessToken(context.Background(), token, 5*time.Second))

	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(goodVerifier()), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestChainVerifier(t *testing.T) {
	ctx := context.Background()
	ch := ChainVerifier{&fakeVerifier{accept: "a"}, nil, &fakeVerifier{accept: "b"}}

	_, err := ch.Verify(ctx, "b")
	require.NoError(t, err)

	_, err = ch.Verify(ctx, "c")
	require.Error(t, err)

	_, err = ChainVerifier{}.Verify(ctx, "a")
	require.ErrorContains(t, err, "no token verifier")
}

func TestPrincipalMiddleware(t *testing.T) {
	resolve := func(ctx context.Context, claims map[string]interface{}) (*Principal, error) {
		sub, _ := claims["sub"].(string)
		id, _ := claims["id"].(float64)
		if sub == "" || id == 0 {
			return nil, fmt.Errorf("missing claims")
		}
		return &Principal{ID: int64(id), Username: sub}, nil
	}

	g := gin.New()
	g.GET("/me", AuthMiddleware(goodVerifier()), PrincipalMiddleware(resolve), func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, p)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.JSONEq(t, `{"id":7,"username":"alice"}`, rw.Body.String())

	// claims without id are rejected
	g2 := gin.New()
	ver := &fakeVerifier{accept: "t", claims: map[string]interface{}{"sub": "bob"}}
	g2.GET("/me", AuthMiddleware(ver), PrincipalMiddleware(resolve), func(c *gin.Context) { c.Status(http.StatusOK) })
	req2 := httptest.NewRequest(http.MethodGet, "/me", nil)
	req2.Header.Set("Authorization", "Bearer t")
	rw2 := httptest.NewRecorder()
	g2.ServeHTTP(rw2, req2)
	require.Equal(t, http.StatusUnauthorized, rw2.Code)
	require.Contains(t, rw2.Body.String(), "Could not validate user")
}

func TestPrincipalMiddleware_SeesIssuerOfFederatedToken(t *testing.T) {
	fed := &fakeVerifier{accept: "fed", claims: map[string]interface{}{"iss": "https://idp.example.com", "sub": "mallory", "id": float64(1)}}
	var seen map[string]interface{}
	resolve := func(ctx context.Context, claims map[string]interface{}) (*Principal, error) {
		seen = claims
		return &Principal{ID: 99, Username: "mallory"}, nil
	}

	g := gin.New()
	g.GET("/me", AuthMiddleware(ChainVerifier{&fakeVerifier{accept: "local"}, fed}), PrincipalMiddleware(resolve), func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, p)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer fed")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "https://idp.example.com", seen["iss"])
	require.JSONEq(t, `{"id":99,"username":"mallory"}`, rw.Body.String())
}
