package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
)

// ProviderVerifier validates ID tokens against an OIDC issuer's discovery
// document and JWKS.
type ProviderVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewProviderVerifier discovers issuer. An empty clientID skips the audience check,
// matching providers that issue session tokens without an aud claim.
func NewProviderVerifier(ctx context.Context, issuer, clientID string) (*ProviderVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &ProviderVerifier{verifier: provider.Verifier(cfg)}, nil
}

func (v *ProviderVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
