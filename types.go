package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds identity options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetVerificationTTL() time.Duration
}

// Identity holds the attributes encoded into a bearer token
type Identity interface {
	ID() string
	Email() string
	BindingKind() string
}

// AuthClaims is the decoded view of a bearer token
type AuthClaims interface {
	Subject() string
	AccountID() string
	Email() string
	BindingKind() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenService issues and validates bearer tokens. Implementations must be
// pure functions of (input, secret, clock), safe under unlimited concurrent
// use.
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// AccountStore is the durable account record store. Create must fail with a
// uniqueness conflict on email or provider identity collision, that
// constraint is the arbiter for concurrent writes, not a service pre-check.
type AccountStore interface {
	Create(ctx context.Context, record *Account) (*Account, error)
	Update(ctx context.Context, record *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (*Account, error)
}

// VerificationTokenStore is the durable one-time token store. MarkConsumed
// sets consumed_at exactly once, a second call fails with ErrTokenConsumed
// and never overwrites the first timestamp.
type VerificationTokenStore interface {
	Create(ctx context.Context, record *VerificationToken) (*VerificationToken, error)
	GetByToken(ctx context.Context, token string) (*VerificationToken, error)
	MarkConsumed(ctx context.Context, token string, at time.Time) error
}

// StoreManager exposes the stores plus a transactional scope. The manager
// passed to the RunInTx callback is bound to the transaction, writes through
// it commit or roll back as one unit.
type StoreManager interface {
	Accounts() AccountStore
	VerificationTokens() VerificationTokenStore
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreManager) error) error
}

// ProviderIdentity is the asserted identity tuple returned by an
// IdentityVerifier after it validated a third-party credential.
type ProviderIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
}

// IdentityVerifier validates a third-party credential and asserts identity
// claims. Implementations exist per provider and are selected by tag.
type IdentityVerifier interface {
	Name() string
	Verify(ctx context.Context, credential string) (*ProviderIdentity, error)
}

// VerifierRegistry dispatches credentials to the verifier registered for a
// provider tag.
type VerifierRegistry interface {
	Verify(ctx context.Context, provider, credential string) (*ProviderIdentity, error)
}

// EmailDispatcher sends verification emails. Dispatch failures surface as
// ErrDispatchFailed and are never retried by the core.
type EmailDispatcher interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
