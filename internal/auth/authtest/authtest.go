// Package authtest runs an in-process identity provider that publishes a
// JWKS and mints signed access tokens for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"healthOSAPI/internal/auth"
)

const KeyID = "test-key"

type Provider struct {
	Server *httptest.Server
	Key    *rsa.PrivateKey
}

// NewProvider starts a provider whose base URL plays the role of SUPABASE_URL.
func NewProvider(t *testing.T) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	p := &Provider{Key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.jwks())
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

func (p *Provider) URL() string {
	return p.Server.URL
}

func (p *Provider) Issuer() string {
	return p.Server.URL + "/auth/v1"
}

func (p *Provider) JWKSURL() string {
	return p.Server.URL + "/auth/v1/.well-known/jwks.json"
}

// Verifier returns a verifier trusting this provider.
func (p *Provider) Verifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.VerifierConfig{
		JWKSURL:         p.JWKSURL(),
		Issuer:          p.Issuer(),
		RefreshInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	t.Cleanup(v.Close)
	return v
}

// Claims returns valid claims for subject that expire in one hour.
func (p *Provider) Claims(subject, email string) *auth.Claims {
	now := time.Now()
	return &auth.Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    p.Issuer(),
			Audience:  jwt.ClaimStrings{auth.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// Token signs claims with the provider key.
func (p *Provider) Token(t *testing.T, claims *auth.Claims) string {
	t.Helper()
	return SignWith(t, p.Key, KeyID, claims)
}

// TokenFor is shorthand for a valid token for subject.
func (p *Provider) TokenFor(t *testing.T, subject, email string) string {
	t.Helper()
	return p.Token(t, p.Claims(subject, email))
}

// SignWith signs claims with an arbitrary key, for forged-token tests.
func SignWith(t *testing.T, key *rsa.PrivateKey, kid string, claims *auth.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (p *Provider) jwks() map[string]any {
	pub := p.Key.PublicKey
	return map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": KeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
}
