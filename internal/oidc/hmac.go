package oidc

import (
	"context"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/tokens"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
)

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier { return &HMACVerifier{secret: secret} }

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := tokens.Parse(v.secret, raw)
	if err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}
