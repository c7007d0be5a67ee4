package ociauth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims mirrors the claims a session token carries. Only the tenant
// claim and the registered expiry are read locally.
type sessionClaims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// SecurityToken is a session token read from a profile's
// security_token_file. The signature is never verified locally, the
// provider does that on every request.
type SecurityToken struct {
	Raw       string
	Tenant    string
	ExpiresAt time.Time
}

// LoadSecurityToken reads and decodes a session token file.
func LoadSecurityToken(path string) (*SecurityToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read security token %s: %v", path, err)
	}

	raw := strings.TrimSpace(string(data))
	claims := &sessionClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse security token %s: %v", path, err)
	}

	token := &SecurityToken{Raw: raw, Tenant: claims.Tenant}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}
	return token, nil
}

// Expired reports whether the token expiry has passed. Tokens without an
// exp claim never report expired.
func (t *SecurityToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// KeyID returns the signing key id for session auth.
func (t *SecurityToken) KeyID() string {
	return "ST$" + t.Raw
}
