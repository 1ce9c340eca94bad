package identity

import (
	"context"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// BunStores implements StoreManager on a bun database. The uniqueness
// constraints on accounts.email and (provider, provider_user_id) live in the
// schema, conflicting writes surface as ErrDuplicateAccount.
type BunStores struct {
	db       *bun.DB
	accounts *bunAccounts
	tokens   *bunVerificationTokens
}

// NewBunStores creates a StoreManager backed by the given bun database.
func NewBunStores(db *bun.DB) *BunStores {
	return &BunStores{
		db:       db,
		accounts: newBunAccounts(db, db),
		tokens:   &bunVerificationTokens{idb: db},
	}
}

var _ StoreManager = (*BunStores)(nil)

func (m *BunStores) Validate() error {
	if m.db == nil {
		return errors.New("stores require a bun database")
	}
	return nil
}

func (m *BunStores) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *BunStores) Accounts() AccountStore {
	return m.accounts
}

func (m *BunStores) VerificationTokens() VerificationTokenStore {
	return m.tokens
}

// RunInTx runs fn inside a database transaction. The StoreManager handed to
// fn is bound to that transaction.
func (m *BunStores) RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreManager) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, m.bind(tx))
		})
	}
}

func (m *BunStores) bind(idb bun.IDB) *BunStores {
	return &BunStores{
		db:       m.db,
		accounts: m.accounts.bind(idb),
		tokens:   &bunVerificationTokens{idb: idb},
	}
}
