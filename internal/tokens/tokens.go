package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/models"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

// DefaultTTL applies when a caller passes a non-positive ttl.
const DefaultTTL = 15 * time.Minute

// Claims carried by locally issued access tokens: sub is the username, id the user id.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

func signingMethod(cfg *config.Config) (jwt.SigningMethod, error) {
	alg := cfg.Auth.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	m, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	return m, nil
}

// GenerateAccessToken creates a signed JWT access token for the user
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	method, err := signingMethod(cfg)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Auth.SecretKey))
}

// ParseAccessToken verifies signature, algorithm and expiry of a locally issued token.
func ParseAccessToken(cfg *config.Config, raw string) (*Claims, error) {
	method, err := signingMethod(cfg)
	if err != nil {
		return nil, err
	}
	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Auth.SecretKey), nil
	}, jwt.WithValidMethods([]string{method.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.UserID <= 0 {
		return nil, errors.New("token is missing sub or id")
	}
	return &claims, nil
}

// ExpiryUnverified reads the exp claim without checking the signature.
// Only use it to size revocation TTLs for tokens that already passed verification.
func ExpiryUnverified(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("exp claim not present")
	}
	return claims.ExpiresAt.Time, nil
}

// Verifier adapts ParseAccessToken to middleware.Verifier.
type Verifier struct {
	cfg *config.Config
}

func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{cfg: cfg}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := ParseAccessToken(v.cfg, raw)
	if err != nil {
		return nil, err
	}
	return verifiedToken{claims: claims}, nil
}

type verifiedToken struct {
	claims *Claims
}

func (t verifiedToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
