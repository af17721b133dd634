package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.Auth.SecretKey = secret
	cfg.Auth.Algorithm = "HS256"
	return cfg
}

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	u := &models.User{ID: 42, Username: "alice"}

	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Auth.SecretKey), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "alice", claims["sub"])
	require.Equal(t, float64(42), claims["id"])

	got, err := ParseAccessToken(cfg, tokenStr)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, "alice", got.Subject)
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	cfg := testConfig("default-ttl-secret-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: 1, Username: "u"}, 0)
	require.NoError(t, err)

	exp, err := ExpiryUnverified(tokenStr)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(DefaultTTL), exp, 5*time.Second)
}

func TestGenerateAccessToken_HonoursAlgorithm(t *testing.T) {
	cfg := testConfig("hs512-secret-xxxxxxxxxxxxxxxxxxxxxxxx")
	cfg.Auth.Algorithm = "HS512"
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: 1, Username: "u"}, time.Minute)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, "HS512", parsed.Method.Alg())

	// a verifier configured for HS256 must refuse it
	_, err = ParseAccessToken(testConfig(cfg.Auth.SecretKey), tokenStr)
	require.Error(t, err)

	cfg.Auth.Algorithm = "RS256"
	_, err = GenerateAccessToken(cfg, &models.User{ID: 1, Username: "u"}, time.Minute)
	require.Error(t, err)
}

func TestParseAccessToken_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	claims := Claims{
		UserID: 2,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.SecretKey))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, tokenStr)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessToken_MissingExpRejected(t *testing.T) {
	cfg := testConfig("no-exp-secret-xxxxxxxxxxxxxxxxxxxx")
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u", "id": 1}).SignedString([]byte(cfg.Auth.SecretKey))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, tokenStr)
	require.Error(t, err)
}

func TestParseAccessToken_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: 3, Username: "bob"}, 2*time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(testConfig("different-secret-xxxxxxxxxxxxxxxx"), tokenStr)
	require.Error(t, err)
}

func TestParseAccessToken_Malformed(t *testing.T) {
	_, err := ParseAccessToken(testConfig("x"), "not.a.jwt")
	require.Error(t, err)
}

func TestParseAccessToken_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","id":1,"exp":9999999999}`))
	tok := headerEnc + "." + payloadEnc + "."

	_, err := ParseAccessToken(testConfig("x"), tok)
	require.Error(t, err)
}

func TestParseAccessToken_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: 9, Username: "user-t"}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))

	_, err = ParseAccessToken(cfg, strings.Join(parts, "."))
	require.Error(t, err)
}

func TestVerifier_ExposesClaims(t *testing.T) {
	cfg := testConfig("verifier-secret-xxxxxxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: 77, Username: "vera"}, time.Minute)
	require.NoError(t, err)

	tok, err := NewVerifier(cfg).Verify(context.Background(), tokenStr)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "vera", claims["sub"])
	require.Equal(t, float64(77), claims["id"])

	_, err = NewVerifier(cfg).Verify(context.Background(), "garbage")
	require.Error(t, err)
}
