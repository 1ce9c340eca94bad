package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultVerificationTTL is how long a registration verification token stays
// redeemable.
const DefaultVerificationTTL = 24 * time.Hour

// RegisterAccountMessage carries a local registration request.
type RegisterAccountMessage struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Registrar creates local accounts pending email verification.
type Registrar struct {
	stores          StoreManager
	hasher          PasswordAuthenticator
	verificationTTL time.Duration
	logger          Logger
}

type RegistrarOption func(*Registrar)

// WithVerificationTTL overrides the verification token TTL.
func WithVerificationTTL(ttl time.Duration) RegistrarOption {
	return func(r *Registrar) {
		if ttl > 0 {
			r.verificationTTL = ttl
		}
	}
}

// WithRegistrarHasher overrides the password hasher.
func WithRegistrarHasher(hasher PasswordAuthenticator) RegistrarOption {
	return func(r *Registrar) {
		if hasher != nil {
			r.hasher = hasher
		}
	}
}

// WithRegistrarLogger overrides the logger.
func WithRegistrarLogger(logger Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistrar creates a new Registrar
func NewRegistrar(stores StoreManager, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		stores:          stores,
		hasher:          BcryptHasher{},
		verificationTTL: DefaultVerificationTTL,
		logger:          defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register creates an inactive Local account plus its verification token and
// persists both as one unit. Email dispatch is the caller's responsibility,
// the account exists in an unverified state regardless of whether the email
// goes out.
func (r *Registrar) Register(ctx context.Context, event RegisterAccountMessage) (*Account, *VerificationToken, error) {
	select {
	case <-ctx.Done():
		return nil, nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return r.register(ctx, event)
	}
}

func (r *Registrar) register(ctx context.Context, event RegisterAccountMessage) (*Account, *VerificationToken, error) {
	hash, err := r.hasher.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := time.Now()
	account := &Account{
		ID:          uuid.New(),
		Email:       NormalizeEmail(event.Email),
		DisplayName: event.DisplayName,
		Active:      false,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	account.SetBinding(LocalBinding(hash))

	var token *VerificationToken

	err = r.stores.RunInTx(ctx, func(ctx context.Context, tx StoreManager) error {
		if account, err = tx.Accounts().Create(ctx, account); err != nil {
			if IsDuplicateAccount(err) || IsDuplicateConstraint(err) {
				return ErrDuplicateAccount
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account")
		}

		token = NewVerificationToken(account.ID, r.verificationTTL)
		if token, err = tx.VerificationTokens().Create(ctx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, nil, richErr
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	return account, token, nil
}
