package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinker(stores StoreManager) (*ProviderLinker, *stubTokenService) {
	tokens := &stubTokenService{}
	linker := NewProviderLinker(stores, tokens).WithLogger(noopLogger{})
	return linker, tokens
}

func TestSignIn_CreatesNewActiveAccount(t *testing.T) {
	stores := newMemStores()
	linker, tokens := newTestLinker(stores)

	account, token, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       "Google",
		ProviderUserID: "g-123",
		Email:          "New.Person@Example.com",
		DisplayName:    "New Person",
	})
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "stub-token", token)

	assert.Equal(t, BindingProvider, account.AuthKind)
	assert.Equal(t, ProviderGoogle, account.Provider)
	assert.Equal(t, "g-123", account.ProviderUserID)
	assert.Equal(t, "new.person@example.com", account.Email)
	assert.Equal(t, "New Person", account.DisplayName)
	assert.True(t, account.Active)
	require.NotNil(t, account.EmailVerifiedAt)
	assert.Empty(t, account.PasswordHash)

	require.NotNil(t, tokens.lastSeen)
	assert.Equal(t, BindingProvider, tokens.lastSeen.BindingKind())
}

func TestSignIn_MatchesExistingProviderIdentity(t *testing.T) {
	stores := newMemStores()
	now := time.Now()
	existing := &Account{
		ID:          uuid.New(),
		Email:       "person@example.com",
		DisplayName: "Old Name",
		Active:      true,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	existing.SetBinding(ProviderBinding(ProviderGoogle, "g-123"))
	existing.MarkEmailVerified(now)
	stores.accounts.add(existing)

	linker, _ := newTestLinker(stores)
	account, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-123",
		Email:          "person@example.com",
		DisplayName:    "Fresh Name",
	})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, account.ID)
	assert.Equal(t, "Fresh Name", account.DisplayName)
	assert.Len(t, stores.accounts.byID, 1)
}

func TestSignIn_ProviderMatchKeepsNameWhenAssertionOmitsIt(t *testing.T) {
	stores := newMemStores()
	now := time.Now()
	existing := &Account{
		ID:          uuid.New(),
		Email:       "person@example.com",
		DisplayName: "Kept Name",
		Active:      true,
		CreatedAt:   &now,
	}
	existing.SetBinding(ProviderBinding(ProviderApple, "a-42"))
	stores.accounts.add(existing)

	linker, _ := newTestLinker(stores)
	account, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderApple,
		ProviderUserID: "a-42",
		Email:          "person@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kept Name", account.DisplayName)
}

// An email match rebinds the account to the provider identity, local
// password included. The provider-verified credential takes control of the
// email's account.
func TestSignIn_RebindsLocalAccountByEmail(t *testing.T) {
	stores := newMemStores()
	now := time.Now()
	local := &Account{
		ID:        uuid.New(),
		Email:     "person@example.com",
		Active:    true,
		CreatedAt: &now,
	}
	local.SetBinding(LocalBinding("hashed:pw"))
	local.MarkEmailVerified(now)
	stores.accounts.add(local)

	linker, _ := newTestLinker(stores)
	account, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-99",
		Email:          "person@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, local.ID, account.ID)
	assert.Equal(t, BindingProvider, account.AuthKind)
	assert.Equal(t, ProviderGoogle, account.Provider)
	assert.Equal(t, "g-99", account.ProviderUserID)
	assert.Empty(t, account.PasswordHash)
	assert.Len(t, stores.accounts.byID, 1)
}

// A provider-verified email claims even an unverified local registration.
func TestSignIn_TakesOverUnverifiedLocalAccount(t *testing.T) {
	stores := newMemStores()
	now := time.Now()
	pending := &Account{
		ID:        uuid.New(),
		Email:     "pending@example.com",
		Active:    false,
		CreatedAt: &now,
	}
	pending.SetBinding(LocalBinding("hashed:pw"))
	stores.accounts.add(pending)

	linker, _ := newTestLinker(stores)
	account, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderApple,
		ProviderUserID: "a-7",
		Email:          "pending@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, pending.ID, account.ID)
	assert.True(t, account.Active)
	require.NotNil(t, account.EmailVerifiedAt)
	assert.Equal(t, BindingProvider, account.AuthKind)
}

func TestSignIn_RepeatSignInIsStable(t *testing.T) {
	stores := newMemStores()
	linker, _ := newTestLinker(stores)

	asserted := ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-123",
		Email:          "person@example.com",
	}

	first, _, err := linker.SignIn(context.Background(), asserted)
	require.NoError(t, err)

	second, _, err := linker.SignIn(context.Background(), asserted)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, stores.accounts.byID, 1)
}

// A create that loses a concurrent race re-resolves once into the branch
// that now matches.
func TestSignIn_LostCreateRaceResolvesToWinner(t *testing.T) {
	stores := newMemStores()
	linker, _ := newTestLinker(stores)

	winner := &Account{
		ID:     uuid.New(),
		Email:  "person@example.com",
		Active: true,
	}
	winner.SetBinding(ProviderBinding(ProviderGoogle, "g-123"))

	// the winning row lands during our create, which loses the race
	stores.accounts.createErr = ErrDuplicateAccount
	stores.accounts.createHook = func() {
		stores.accounts.add(winner)
	}

	account, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-123",
		Email:          "person@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stores.accounts.createCalls)
	assert.Equal(t, winner.ID, account.ID)
	assert.Len(t, stores.accounts.byID, 1)
}

func TestSignIn_ConflictWithoutWinnerSurfacesDuplicate(t *testing.T) {
	stores := newMemStores()
	stores.accounts.createErr = ErrDuplicateAccount

	linker, _ := newTestLinker(stores)
	_, _, err := linker.SignIn(context.Background(), ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-123",
		Email:          "person@example.com",
	})
	require.Error(t, err)
	assert.True(t, IsDuplicateAccount(err))
	assert.Equal(t, 2, stores.accounts.createCalls)
}

func TestSignIn_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	linker, _ := newTestLinker(newMemStores())
	_, _, err := linker.SignIn(ctx, ProviderIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled during provider sign in")
}
