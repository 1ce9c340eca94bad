package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProviderLinker resolves a verified third-party identity to an account and
// issues a bearer token. It assumes the (provider, provider_user_id, email)
// tuple was already authenticated by an IdentityVerifier and never
// re-validates the credential itself.
//
// Resolution order, first match wins:
//
//  1. an account already bound to the provider identity
//  2. an account owning the asserted email, whatever its current binding:
//     the binding is overwritten with the provider identity and the account
//     is forced active. Whoever presents a provider-verified credential for
//     an email takes control of the account owning that email, including an
//     unverified local account.
//  3. a brand-new active account, email verified on the external verifier's
//     word.
type ProviderLinker struct {
	stores       StoreManager
	tokenService TokenService
	logger       Logger
}

// NewProviderLinker creates a new ProviderLinker
func NewProviderLinker(stores StoreManager, tokenService TokenService) *ProviderLinker {
	return &ProviderLinker{
		stores:       stores,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (l *ProviderLinker) WithLogger(logger Logger) *ProviderLinker {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// SignIn resolves the asserted identity to an account and issues a bearer
// token. Each branch is a single atomic read-resolve-write, the store's
// uniqueness constraints are the arbiter for concurrent sign-ins: a create
// that loses the race is re-resolved once into the branch that now matches,
// or surfaces as ErrDuplicateAccount.
func (l *ProviderLinker) SignIn(ctx context.Context, asserted ProviderIdentity) (*Account, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during provider sign in")
	default:
	}

	asserted.Provider = strings.ToLower(strings.TrimSpace(asserted.Provider))
	asserted.Email = NormalizeEmail(asserted.Email)

	account, err := l.resolve(ctx, asserted, true)
	if err != nil {
		return nil, "", err
	}

	token, err := l.tokenService.Generate(NewIdentityFromAccount(account))
	if err != nil {
		return nil, "", err
	}

	return account, token, nil
}

func (l *ProviderLinker) resolve(ctx context.Context, asserted ProviderIdentity, retryOnConflict bool) (*Account, error) {
	accounts := l.stores.Accounts()
	now := time.Now()

	account, err := accounts.GetByProviderIdentity(ctx, asserted.Provider, asserted.ProviderUserID)
	if err == nil {
		return l.refreshMatched(ctx, account, asserted, now)
	}
	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find account by provider identity")
	}

	if asserted.Email != "" {
		account, err = accounts.GetByEmail(ctx, asserted.Email)
		if err == nil {
			return l.rebindByEmail(ctx, account, asserted, now)
		}
		if !goerrors.IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find account by email")
		}
	}

	created := &Account{
		ID:          uuid.New(),
		Email:       asserted.Email,
		DisplayName: asserted.DisplayName,
		Active:      true,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	created.SetBinding(ProviderBinding(asserted.Provider, asserted.ProviderUserID))
	created.MarkEmailVerified(now)

	created, err = accounts.Create(ctx, created)
	if err == nil {
		l.logger.Info("Provider sign in created account", "provider", asserted.Provider, "account", created.ID.String())
		return created, nil
	}

	if IsDuplicateAccount(err) || IsDuplicateConstraint(err) {
		// lost the race to a concurrent sign-in, the winning row must exist now
		if retryOnConflict {
			return l.resolve(ctx, asserted, false)
		}
		return nil, ErrDuplicateAccount
	}

	return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
}

// refreshMatched handles an exact provider identity match: profile refresh,
// forced activation, and an email update when the provider reports a new one.
func (l *ProviderLinker) refreshMatched(ctx context.Context, account *Account, asserted ProviderIdentity, now time.Time) (*Account, error) {
	if asserted.DisplayName != "" {
		account.DisplayName = asserted.DisplayName
	}
	if asserted.Email != "" {
		account.Email = asserted.Email
	}
	account.Active = true
	account.MarkEmailVerified(now)
	account.Touch(now)

	account, err := l.stores.Accounts().Update(ctx, account)
	if err != nil {
		if IsDuplicateAccount(err) || IsDuplicateConstraint(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh account")
	}

	return account, nil
}

// rebindByEmail overwrites the binding of the account owning the asserted
// email. The previous binding, local password included, is replaced
// wholesale.
func (l *ProviderLinker) rebindByEmail(ctx context.Context, account *Account, asserted ProviderIdentity, now time.Time) (*Account, error) {
	account.SetBinding(ProviderBinding(asserted.Provider, asserted.ProviderUserID))
	if asserted.DisplayName != "" {
		account.DisplayName = asserted.DisplayName
	}
	account.Active = true
	account.MarkEmailVerified(now)
	account.Touch(now)

	account, err := l.stores.Accounts().Update(ctx, account)
	if err != nil {
		if IsDuplicateAccount(err) || IsDuplicateConstraint(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rebind account")
	}

	l.logger.Info("Provider sign in rebound account", "provider", asserted.Provider, "account", account.ID.String())

	return account, nil
}
