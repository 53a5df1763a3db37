package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the token issued by the identity provider. The caller's
// identity is Username when present, otherwise the registered subject.
type AccessTokenClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the string used as seller and bidder identity.
func (c *AccessTokenClaims) Identity() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.Username); name != "" {
		return name
	}
	return strings.TrimSpace(c.Subject)
}
