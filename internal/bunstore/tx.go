package bunstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// Transactor runs units of work in bun transactions.
type Transactor struct {
	db *bun.DB
}

var _ store.Transactor = (*Transactor)(nil)

// NewTransactor creates a Transactor for db.
func NewTransactor(db *bun.DB) *Transactor {
	return &Transactor{db: db}
}

// RunInTx runs fn with read-committed isolation. The transaction is rolled
// back when fn returns an error.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	if t.db.Dialect().Name() == dialect.SQLite {
		// sqlite transactions are serializable and reject other levels
		opts = nil
	}

	err := t.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx})
	})
	if err != nil {
		return store.StorageFailure(err, "transaction")
	}
	return nil
}

type bunTx struct {
	tx bun.Tx
}

func (b *bunTx) SoftDeleteByID(ctx context.Context, family model.Family, id uuid.UUID, stamp store.Stamp) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := b.tx.NewUpdate().
		Table(family.Table()).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", stamp.At).
		Set("updated_by = ?", stamp.Actor).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return store.StorageFailure(err, fmt.Sprintf("soft delete %s", family))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return store.StorageFailure(err, fmt.Sprintf("soft delete %s", family))
	}
	if n == 0 {
		return store.NotFound(family, id)
	}
	return nil
}

func (b *bunTx) SoftDeleteByParent(ctx context.Context, family model.Family, foreignKey string, parentIDs []uuid.UUID, stamp store.Stamp) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(parentIDs) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := b.tx.NewSelect().
		Table(family.Table()).
		Column("id").
		Where("? IN (?)", bun.Ident(foreignKey), bun.In(parentIDs)).
		Where("is_deleted = ?", false).
		Order("created_at ASC", "id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, store.StorageFailure(err, fmt.Sprintf("select %s by %s", family, foreignKey))
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = b.tx.NewUpdate().
		Table(family.Table()).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", stamp.At).
		Set("updated_by = ?", stamp.Actor).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return nil, store.StorageFailure(err, fmt.Sprintf("soft delete %s by %s", family, foreignKey))
	}
	return ids, nil
}
