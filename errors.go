package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateAccount       = "identity_duplicate_account"
	TextCodeInvalidCreds           = "identity_invalid_credentials"
	TextCodeNotVerified            = "identity_not_verified"
	TextCodeTokenInvalid           = "identity_token_invalid"
	TextCodeTokenExpired           = "identity_token_expired"
	TextCodeTokenConsumed          = "identity_token_consumed"
	TextCodeVerificationFailed     = "identity_verification_failed"
	TextCodeDispatchFailed         = "identity_dispatch_failed"
)

// ErrDuplicateAccount is returned when an account with the email or provider
// identity already exists.
var ErrDuplicateAccount = goerrors.New("account already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials covers a missing account, a non password binding, and
// a password mismatch. All three collapse into this one error so a caller
// cannot tell which condition failed.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotVerified is returned when credentials check out but the account has
// not completed email verification.
var ErrNotVerified = goerrors.New("email address not verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrTokenInvalid is returned for unknown or malformed tokens.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenConsumed is returned when a verification token is presented a
// second time, regardless of expiry.
var ErrTokenConsumed = goerrors.New("token already used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenConsumed).
	WithCode(goerrors.CodeConflict)

// ErrIdentityVerificationFailed is returned when a third-party credential
// cannot be verified: bad signature, untrusted issuer, or missing email claim.
var ErrIdentityVerificationFailed = goerrors.New("identity verification failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeVerificationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrDispatchFailed is returned when a verification email cannot be sent. The
// registration it belongs to is not rolled back.
var ErrDispatchFailed = goerrors.New("unable to dispatch verification email", goerrors.CategoryOperation).
	WithTextCode(TextCodeDispatchFailed)

// WrapVerificationFailed wraps a provider verification error with the shared
// verification failed code so callers can match it without knowing which
// provider rejected the credential.
func WrapVerificationFailed(err error, msg string) error {
	if err == nil {
		return goerrors.New(msg, goerrors.CategoryAuth).
			WithTextCode(TextCodeVerificationFailed).
			WithCode(goerrors.CodeUnauthorized)
	}
	return goerrors.Wrap(err, goerrors.CategoryAuth, msg).
		WithTextCode(TextCodeVerificationFailed).
		WithCode(goerrors.CodeUnauthorized)
}

// IsDuplicateAccount reports whether err is, or wraps, a duplicate account
// conflict.
func IsDuplicateAccount(err error) bool {
	return hasTextCode(err, TextCodeDuplicateAccount)
}

// IsIdentityVerificationFailed reports whether err is, or wraps, a failed
// third-party identity verification.
func IsIdentityVerificationFailed(err error) bool {
	return hasTextCode(err, TextCodeVerificationFailed)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsDuplicateConstraint will check for store level uniqueness violations. The
// constraint is the source of truth for email and provider identity
// uniqueness, services translate its conflict signal into ErrDuplicateAccount.
func IsDuplicateConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
