package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Audience is the aud claim carried by tokens of signed-in users.
const Audience = "authenticated"

// UserMetadata is the profile data the identity provider attaches to a token.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Claims are the verified contents of a provider access token.
type Claims struct {
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	Role         string       `json:"role,omitempty"`
	SessionID    string       `json:"session_id,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// DisplayName picks the best available full name for a new account.
func (c *Claims) DisplayName() string {
	if name := strings.TrimSpace(c.UserMetadata.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(c.UserMetadata.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(c.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}
