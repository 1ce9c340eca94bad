package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type bunVerificationTokens struct {
	idb bun.IDB
}

var _ VerificationTokenStore = (*bunVerificationTokens)(nil)

func (t *bunVerificationTokens) Create(ctx context.Context, record *VerificationToken) (*VerificationToken, error) {
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}

	if _, err := t.idb.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (t *bunVerificationTokens) GetByToken(ctx context.Context, token string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := t.idb.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"token": token})
		}
		return nil, err
	}

	return record, nil
}

// MarkConsumed sets consumed_at exactly once. The guard on consumed_at makes
// consumption monotonic: a second call cannot overwrite the first timestamp
// and reports ErrTokenConsumed.
func (t *bunVerificationTokens) MarkConsumed(ctx context.Context, token string, at time.Time) error {
	res, err := t.idb.NewUpdate().
		Model((*VerificationToken)(nil)).
		Set("consumed_at = ?", at).
		Where("token = ?", token).
		Where("consumed_at IS NULL").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read consume result")
	}

	if rows == 0 {
		existing, err := t.GetByToken(ctx, token)
		if err != nil {
			return ErrTokenInvalid
		}
		if existing.Consumed() {
			return ErrTokenConsumed
		}
		return goerrors.New("verification token update matched no rows", goerrors.CategoryInternal)
	}

	return nil
}
