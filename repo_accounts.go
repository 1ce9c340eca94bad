package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type bunAccounts struct {
	repository.Repository[*Account]
	idb bun.IDB
}

var _ AccountStore = (*bunAccounts)(nil)

func newBunAccounts(db *bun.DB, idb bun.IDB) *bunAccounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &bunAccounts{
		Repository: repo,
		idb:        idb,
	}
}

func (a *bunAccounts) bind(idb bun.IDB) *bunAccounts {
	return &bunAccounts{Repository: a.Repository, idb: idb}
}

func (a *bunAccounts) Create(ctx context.Context, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, a.idb, record)
	if err != nil {
		if IsDuplicateConstraint(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	return created, nil
}

func (a *bunAccounts) Update(ctx context.Context, record *Account) (*Account, error) {
	updated, err := a.Repository.UpdateTx(ctx, a.idb, record, repository.UpdateByID(record.ID.String()))
	if err != nil {
		if IsDuplicateConstraint(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	return updated, nil
}

func (a *bunAccounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.getOne(ctx, "?TableAlias.id = ?", id, map[string]any{"id": id.String()})
}

func (a *bunAccounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	email = NormalizeEmail(email)
	return a.getOne(ctx, "?TableAlias.email = ?", email, map[string]any{"email": email})
}

func (a *bunAccounts) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (*Account, error) {
	record := &Account{}
	err := a.idb.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":         provider,
					"provider_user_id": providerUserID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *bunAccounts) getOne(ctx context.Context, where string, value any, meta map[string]any) (*Account, error) {
	record := &Account{}
	err := a.idb.NewSelect().
		Model(record).
		Where(where, value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(meta)
		}
		return nil, err
	}

	return record, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.AuthKind == "" {
		record.AuthKind = BindingLocal
	}
	record.Email = NormalizeEmail(record.Email)
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
		record.UpdatedAt = &now
	}
}
