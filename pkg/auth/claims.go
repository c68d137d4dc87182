// Package auth provides JWT-based authentication for clinic staff.
// Tokens are issued by the clinic's identity provider and validated
// against its JWKS endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Staff roles carried in tokens.
const (
	RoleNutritionist = "nutritionist"
	RoleAdmin        = "admin"
)

// Claims represents the JWT claims structure from the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the staff-facing custom claims.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"` // Staff email address
	Roles []string `json:"roles,omitempty"` // Staff roles within the clinic
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// UserUID extracts the authenticated staff member's UID from context claims.
// Returns an error if not authenticated or the subject is missing.
func UserUID(ctx context.Context) (string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "", fmt.Errorf("authentication required: no claims in context")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing user ID in JWT claims")
	}
	return claims.Subject, nil
}
