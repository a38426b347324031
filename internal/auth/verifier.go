package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"healthOSAPI/internal/logger"
)

// ErrUnauthenticated is returned for any token that fails verification.
var ErrUnauthenticated = errors.New("unauthenticated")

type VerifierConfig struct {
	JWKSURL         string
	Issuer          string
	Audience        string
	RefreshInterval time.Duration
	HTTPClient      *http.Client
}

// Verifier validates provider-issued bearer tokens against the provider's
// published key set. The key set is cached in memory, refreshed in the
// background and on unknown key ids. It is safe for concurrent use.
type Verifier struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier fetches the key set once and starts the background refresh.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.Audience == "" {
		cfg.Audience = Audience
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Client:            client,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh JWKS", "url", cfg.JWKSURL, "err", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", cfg.JWKSURL, err)
	}

	return &Verifier{
		jwks:     jwks,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

// Close stops the background refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}

// Verify checks the token signature, expiry, issuer, audience and subject.
// Every failure wraps ErrUnauthenticated.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	now := v.now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w: token expired or missing exp", ErrUnauthenticated)
	}
	if !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUnauthenticated, claims.Issuer)
	}
	if !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}

	return claims, nil
}
