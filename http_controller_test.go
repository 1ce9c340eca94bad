package identity

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validate(t *testing.T) {
	valid := RegisterRequest{
		Email:       "user@example.com",
		Password:    "secret123",
		DisplayName: "User",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		payload RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "secret123"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "secret123"}},
		{"missing password", RegisterRequest{Email: "user@example.com"}},
		{"short password", RegisterRequest{Email: "user@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.payload.Validate())
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	valid := LoginRequest{Email: "user@example.com", Password: "secret123"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, LoginRequest{Password: "secret123"}.Validate())
	assert.Error(t, LoginRequest{Email: "user@example.com"}.Validate())
	assert.Error(t, LoginRequest{Email: "nope", Password: "secret123"}.Validate())
}

func TestVerifyEmailRequest_Validate(t *testing.T) {
	assert.NoError(t, VerifyEmailRequest{Token: "some-token"}.Validate())
	assert.Error(t, VerifyEmailRequest{}.Validate())
}

func TestProviderSignInRequest_Validate(t *testing.T) {
	assert.NoError(t, ProviderSignInRequest{Credential: "id-token"}.Validate())
	assert.Error(t, ProviderSignInRequest{}.Validate())
}

func TestErrorResponse_DomainErrors(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		textCode string
	}{
		{ErrDuplicateAccount, router.StatusConflict, TextCodeDuplicateAccount},
		{ErrInvalidCredentials, router.StatusUnauthorized, TextCodeInvalidCreds},
		{ErrNotVerified, router.StatusForbidden, TextCodeNotVerified},
		{ErrTokenInvalid, router.StatusUnauthorized, TextCodeTokenInvalid},
		{ErrTokenExpired, router.StatusUnauthorized, TextCodeTokenExpired},
		{ErrTokenConsumed, router.StatusConflict, TextCodeTokenConsumed},
		{ErrIdentityVerificationFailed, router.StatusUnauthorized, TextCodeVerificationFailed},
	}

	for _, tt := range tests {
		status, payload := errorResponse(tt.err)
		assert.Equal(t, tt.status, status)
		assert.Equal(t, tt.textCode, payload["text_code"])
	}
}

func TestErrorResponse_DispatchFailureUsesCategory(t *testing.T) {
	status, payload := errorResponse(ErrDispatchFailed)
	assert.Equal(t, router.StatusBadGateway, status)
	assert.Equal(t, TextCodeDispatchFailed, payload["text_code"])
}

func TestErrorResponse_UnknownError(t *testing.T) {
	status, payload := errorResponse(assert.AnError)
	assert.Equal(t, router.StatusInternalServerError, status)
	assert.Equal(t, "unexpected error", payload["error"])
}

func TestErrorResponse_WrappedRichError(t *testing.T) {
	wrapped := goerrors.Wrap(ErrTokenExpired, goerrors.CategoryAuth, "verification failed")
	status, _ := errorResponse(wrapped)
	assert.Equal(t, router.StatusUnauthorized, status)
}

func TestNewAPIController_RequiresCoreServices(t *testing.T) {
	require.Panics(t, func() {
		NewAPIController(nil, nil, nil, nil, nil)
	})
}
