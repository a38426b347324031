package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/auth/authtest"
)

func TestVerifyValidToken(t *testing.T) {
	provider := authtest.NewProvider(t)
	verifier := provider.Verifier(t)

	claims := provider.Claims("u1", "ana@example.com")
	claims.UserMetadata.FullName = "Ana Pérez"
	claims.UserMetadata.Language = "en"

	got, err := verifier.Verify(context.Background(), provider.Token(t, claims))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Subject)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "Ana Pérez", got.UserMetadata.FullName)
	assert.Equal(t, "en", got.UserMetadata.Language)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	provider := authtest.NewProvider(t)
	verifier := provider.Verifier(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := provider.Claims("u1", "ana@example.com")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := provider.Claims("u1", "ana@example.com")
	noExpiry.ExpiresAt = nil

	wrongIssuer := provider.Claims("u1", "ana@example.com")
	wrongIssuer.Issuer = "https://evil.example.com/auth/v1"

	wrongAudience := provider.Claims("u1", "ana@example.com")
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	noSubject := provider.Claims("", "ana@example.com")

	hmac := jwt.NewWithClaims(jwt.SigningMethodHS256, provider.Claims("u1", "ana@example.com"))
	hmac.Header["kid"] = authtest.KeyID
	hmacToken, err := hmac.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"malformed":      "not-a-jwt",
		"expired":        provider.Token(t, expired),
		"missing exp":    provider.Token(t, noExpiry),
		"wrong issuer":   provider.Token(t, wrongIssuer),
		"wrong audience": provider.Token(t, wrongAudience),
		"no subject":     provider.Token(t, noSubject),
		"foreign key":    authtest.SignWith(t, otherKey, authtest.KeyID, provider.Claims("u1", "ana@example.com")),
		"hmac signed":    hmacToken,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), token)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		})
	}
}

func TestNewVerifierFailsWhenProviderUnreachable(t *testing.T) {
	_, err := auth.NewVerifier(auth.VerifierConfig{
		JWKSURL: "http://127.0.0.1:1/auth/v1/.well-known/jwks.json",
		Issuer:  "http://127.0.0.1:1/auth/v1",
	})
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	c := &auth.Claims{Email: "maria@example.com"}
	assert.Equal(t, "maria", c.DisplayName())

	c.UserMetadata.Name = "María"
	assert.Equal(t, "María", c.DisplayName())

	c.UserMetadata.FullName = "María López"
	assert.Equal(t, "María López", c.DisplayName())

	assert.Equal(t, "User", (&auth.Claims{}).DisplayName())
}
