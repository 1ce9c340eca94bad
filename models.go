package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BindingKind identifies how an account authenticates
type BindingKind = string

const (
	// BindingLocal is an email/password account
	BindingLocal BindingKind = "local"
	// BindingProvider is an account authenticated by a third-party identity provider
	BindingProvider BindingKind = "provider"
)

// Provider tags for the supported identity providers
const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// AuthBinding is the tagged variant describing the authentication method
// currently attached to an account. It is replaced wholesale on transition:
// a Local binding carries only a password hash, a Provider binding carries
// only the provider identity pair.
type AuthBinding struct {
	Kind           BindingKind
	PasswordHash   string
	Provider       string
	ProviderUserID string
}

// LocalBinding returns a Local auth binding for the given password hash.
func LocalBinding(passwordHash string) AuthBinding {
	return AuthBinding{Kind: BindingLocal, PasswordHash: passwordHash}
}

// ProviderBinding returns a Provider auth binding for the given identity pair.
func ProviderBinding(provider, providerUserID string) AuthBinding {
	return AuthBinding{
		Kind:           BindingProvider,
		Provider:       strings.ToLower(provider),
		ProviderUserID: providerUserID,
	}
}

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID              uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string      `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName     string      `bun:"display_name" json:"display_name,omitempty"`
	AuthKind        BindingKind `bun:"auth_kind,notnull" json:"auth_kind,omitempty"`
	PasswordHash    string      `bun:"password_hash" json:"-"`
	Provider        string      `bun:"provider,nullzero,unique:uq_accounts_provider_identity" json:"provider,omitempty"`
	ProviderUserID  string      `bun:"provider_user_id,nullzero,unique:uq_accounts_provider_identity" json:"provider_user_id,omitempty"`
	Active          bool        `bun:"is_active" json:"is_active"`
	EmailVerifiedAt *time.Time  `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	CreatedAt       *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Binding returns the account's current auth binding as a tagged variant.
func (a *Account) Binding() AuthBinding {
	switch a.AuthKind {
	case BindingProvider:
		return ProviderBinding(a.Provider, a.ProviderUserID)
	default:
		return LocalBinding(a.PasswordHash)
	}
}

// SetBinding replaces the account's auth binding wholesale. A transition to a
// Provider binding clears the password hash, a transition to Local clears the
// provider identity pair.
func (a *Account) SetBinding(b AuthBinding) *Account {
	a.AuthKind = b.Kind
	a.PasswordHash = b.PasswordHash
	a.Provider = b.Provider
	a.ProviderUserID = b.ProviderUserID
	return a
}

// IsLocal reports whether the account authenticates with a password.
func (a *Account) IsLocal() bool {
	return a.AuthKind == BindingLocal
}

// MarkEmailVerified sets email_verified_at if unset. The timestamp is set
// once, later calls keep the original value.
func (a *Account) MarkEmailVerified(at time.Time) *Account {
	if a.EmailVerifiedAt == nil {
		a.EmailVerifiedAt = &at
	}
	return a
}

// Touch updates the updated_at timestamp.
func (a *Account) Touch(at time.Time) *Account {
	a.UpdatedAt = &at
	return a
}

// NormalizeEmail trims and lowercases an email address. All email lookups and
// writes go through this so uniqueness holds regardless of caller casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerificationToken is a single-use, time-limited credential proving control
// of an email address.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`

	Token      string     `bun:"token,pk" json:"token,omitempty"`
	AccountID  uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Consumed reports whether the token has already been used.
func (t *VerificationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether the token is past its expiry at the given time.
func (t *VerificationToken) Expired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// NewVerificationToken creates an unguessable token for the account with the
// given TTL.
func NewVerificationToken(accountID uuid.UUID, ttl time.Duration) *VerificationToken {
	now := time.Now()
	return &VerificationToken{
		Token:     uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: &now,
	}
}
