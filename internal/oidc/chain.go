package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/config"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
)

// Chain tries each verifier in order and returns the first success.
type Chain []middleware.Verifier

func (c Chain) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	var errs []error
	for _, v := range c {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// FromConfig builds the verifier chain: OIDC discovery when an issuer is set,
// HS256 when JWT_SECRET is set, and the insecure parser only when explicitly
// allowed and nothing else is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (Chain, error) {
	var chain Chain
	if cfg.OIDC.IssuerURL != "" {
		pv, err := NewProviderVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, pv)
		}
	}
	if cfg.JWT.Secret != "" {
		chain = append(chain, NewHMACVerifier(cfg.JWT.Secret))
	}
	if len(chain) == 0 && cfg.OIDC.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		chain = append(chain, NewInsecureVerifier())
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no token verifier available: set OIDC_ISSUER_URL or JWT_SECRET")
	}
	return chain, nil
}
