package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/models"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidClaims      = errors.New("token claims do not identify a user")
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

const maxUsernameLen = 64

// bcrypt ignores input past 72 bytes
const maxPasswordLen = 72

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register creates a local user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, &ValidationError{Field: "username", Reason: "is required"}
	case len(username) > maxUsernameLen:
		return nil, &ValidationError{Field: "username", Reason: fmt.Sprintf("must be at most %d characters", maxUsernameLen)}
	case password == "":
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	case len(password) > maxPasswordLen:
		return nil, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordLen)}
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: username, HashedPassword: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks a username/password pair.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil || u.HashedPassword == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpsertFromClaims returns the federated user for the OIDC subject, creating it on first sight.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidClaims
	}
	if u, err := s.repo.GetBySub(ctx, sub); err != nil || u != nil {
		return u, err
	}

	email, _ := claims["email"].(string)
	candidate, _ := claims["preferred_username"].(string)
	if candidate == "" {
		candidate = email
	}
	if candidate == "" {
		candidate = sub
	}

	u := &models.User{Username: candidate, Sub: sub, Email: email}
	err := s.repo.Create(ctx, u)
	if errors.Is(err, ErrUsernameTaken) {
		suffix := sub
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		u = &models.User{Username: candidate + "-" + suffix, Sub: sub, Email: email}
		err = s.repo.Create(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ResolveClaims maps verified token claims onto a user.
// Tokens with an issuer come from an identity provider and are resolved by subject
// only; their id claim is never trusted. Locally issued tokens carry no issuer and
// name the user through sub (username) and id.
func (s *Service) ResolveClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidClaims
	}
	if _, federated := claims["iss"]; federated {
		return s.UpsertFromClaims(ctx, claims)
	}
	id, ok := claimInt(claims["id"])
	if !ok || id <= 0 {
		return nil, ErrInvalidClaims
	}
	return &models.User{ID: id, Username: sub}, nil
}

// ResolvePrincipal adapts ResolveClaims to middleware.PrincipalResolver.
func (s *Service) ResolvePrincipal(ctx context.Context, claims map[string]interface{}) (*middleware.Principal, error) {
	u, err := s.ResolveClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{ID: u.ID, Username: u.Username}, nil
}

func claimInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
