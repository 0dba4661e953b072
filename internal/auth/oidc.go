package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier accepts ID tokens from an external identity provider and
// identifies the holder by the email claim.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}

	// SkipClientIDCheck: tokens are minted for the frontend client, not this service.
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var claims struct {
		Email string `json:"email"`
		JTI   string `json:"jti"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims", ErrUnauthenticated)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrUnauthenticated)
	}

	return &Identity{
		Email:     strings.ToLower(claims.Email),
		TokenID:   claims.JTI,
		ExpiresAt: idToken.Expiry,
	}, nil
}

// ChainVerifier tries each verifier in turn and returns the first success.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	var lastErr error = ErrUnauthenticated
	for _, v := range c {
		id, err := v.Verify(ctx, raw)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
