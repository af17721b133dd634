package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

// Verifier checks ID tokens issued by an external OpenID Connect provider.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

// New builds the federated verifier described by cfg. It returns nil when no
// issuer is configured. With AllowInsecure set, a failed discovery falls back
// to reading unverified payloads.
func New(ctx context.Context, cfg config.OIDCConfig) (middleware.Verifier, error) {
	if cfg.Issuer == "" {
		if cfg.AllowInsecure {
			return NewInsecureVerifier(), nil
		}
		return nil, nil
	}
	v, err := NewVerifier(ctx, cfg.Issuer, cfg.ClientID)
	if err != nil {
		if cfg.AllowInsecure {
			return NewInsecureVerifier(), nil
		}
		return nil, err
	}
	return v, nil
}
