package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the concrete implementation of AuthClaims. The payload carries
// the subject account id, its email, and the binding kind it authenticated
// with, plus the registered issued-at and expiry claims.
type JWTClaims struct {
	jwt.RegisteredClaims
	AccountEmail string `json:"email,omitempty"`
	Binding      string `json:"binding,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the subject account id
func (c *JWTClaims) AccountID() string {
	return c.RegisteredClaims.Subject
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.AccountEmail
}

// BindingKind returns the binding kind claim
func (c *JWTClaims) BindingKind() string {
	return c.Binding
}

// Expires returns the expiry timestamp
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAt returns the issuance timestamp
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
