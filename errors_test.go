package identity

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateAccount(t *testing.T) {
	assert.True(t, IsDuplicateAccount(ErrDuplicateAccount))
	assert.True(t, IsDuplicateAccount(goerrors.Wrap(ErrDuplicateAccount, goerrors.CategoryConflict, "create failed").WithTextCode(TextCodeDuplicateAccount)))
	assert.False(t, IsDuplicateAccount(ErrInvalidCredentials))
	assert.False(t, IsDuplicateAccount(errors.New("plain")))
	assert.False(t, IsDuplicateAccount(nil))
}

func TestIsIdentityVerificationFailed(t *testing.T) {
	assert.True(t, IsIdentityVerificationFailed(ErrIdentityVerificationFailed))
	assert.True(t, IsIdentityVerificationFailed(WrapVerificationFailed(errors.New("bad signature"), "google: ID token rejected")))
	assert.False(t, IsIdentityVerificationFailed(ErrTokenInvalid))
	assert.False(t, IsIdentityVerificationFailed(nil))
}

func TestIsDuplicateConstraint(t *testing.T) {
	assert.True(t, IsDuplicateConstraint(errors.New("UNIQUE constraint failed: accounts.email")))
	assert.True(t, IsDuplicateConstraint(errors.New(`duplicate key value violates unique constraint "uq_accounts_provider_identity"`)))
	assert.True(t, IsDuplicateConstraint(errors.New("Error 1062: Duplicate entry 'x' for key 'accounts.email'")))
	assert.False(t, IsDuplicateConstraint(errors.New("connection refused")))
	assert.False(t, IsDuplicateConstraint(nil))
}

func TestSentinelErrorCodes(t *testing.T) {
	tests := []struct {
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{ErrDuplicateAccount, goerrors.CategoryConflict, TextCodeDuplicateAccount},
		{ErrInvalidCredentials, goerrors.CategoryAuth, TextCodeInvalidCreds},
		{ErrNotVerified, goerrors.CategoryAuth, TextCodeNotVerified},
		{ErrTokenInvalid, goerrors.CategoryAuth, TextCodeTokenInvalid},
		{ErrTokenExpired, goerrors.CategoryAuth, TextCodeTokenExpired},
		{ErrTokenConsumed, goerrors.CategoryConflict, TextCodeTokenConsumed},
		{ErrIdentityVerificationFailed, goerrors.CategoryAuth, TextCodeVerificationFailed},
		{ErrDispatchFailed, goerrors.CategoryOperation, TextCodeDispatchFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, tt.err.Category, tt.textCode)
		assert.Equal(t, tt.textCode, tt.err.TextCode)
	}
}
