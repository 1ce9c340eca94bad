package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// EmailVerifier consumes verification tokens and activates accounts
type EmailVerifier struct {
	stores StoreManager
	logger Logger
}

// NewEmailVerifier creates a new EmailVerifier
func NewEmailVerifier(stores StoreManager) *EmailVerifier {
	return &EmailVerifier{
		stores: stores,
		logger: defLogger{},
	}
}

func (v *EmailVerifier) WithLogger(logger Logger) *EmailVerifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Verify redeems a verification token and activates its account. The
// consumed check runs before the expiry check, a consumed-and-expired token
// reports ErrTokenConsumed. Activation and consumption commit as one atomic
// unit, never one without the other.
func (v *EmailVerifier) Verify(ctx context.Context, tokenString string) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
	}

	var account *Account

	err := v.stores.RunInTx(ctx, func(ctx context.Context, tx StoreManager) error {
		token, err := tx.VerificationTokens().GetByToken(ctx, tokenString)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		now := time.Now()

		if token.Consumed() {
			return ErrTokenConsumed
		}
		if token.Expired(now) {
			return ErrTokenExpired
		}

		if account, err = tx.Accounts().GetByID(ctx, token.AccountID); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification")
		}

		account.Active = true
		account.MarkEmailVerified(now)
		account.Touch(now)

		if account, err = tx.Accounts().Update(ctx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		if err := tx.VerificationTokens().MarkConsumed(ctx, tokenString, now); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	return account, nil
}
