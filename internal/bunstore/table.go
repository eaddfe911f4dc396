package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// Table is the store.Table of one family backed by a SQL table. Reads and
// inserts go through a go-repository-bun repository; guarded updates are
// plain bun queries.
type Table[T model.Entity] struct {
	db     *bun.DB
	repo   repository.Repository[T]
	family model.Family
}

var _ store.Table[*model.Document] = (*Table[*model.Document])(nil)

// NewTable binds a table for the family of T to db.
func NewTable[T model.Entity](db *bun.DB) *Table[T] {
	family := model.New[T]().Family()

	repo := repository.NewRepository[T](db, repository.ModelHandlers[T]{
		NewRecord: model.New[T],
		GetID: func(record T) uuid.UUID {
			return record.GetBase().ID
		},
		SetID: func(record T, id uuid.UUID) {
			record.GetBase().ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &Table[T]{db: db, repo: repo, family: family}
}

func live(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("?TableAlias.is_deleted = ?", false)
}

// unbounded clears the page size go-repository-bun applies to every list.
func unbounded(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0).Offset(0)
}

func oldestFirst(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("created_at ASC", "id ASC")
}

func where(f store.Filter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(f.Values) == 1 {
			return q.Where("?TableAlias.? = ?", bun.Ident(f.Column), f.Values[0])
		}
		return q.Where("?TableAlias.? IN (?)", bun.Ident(f.Column), bun.In(f.Values))
	}
}

// Find returns every live row matching filters, oldest first.
func (t *Table[T]) Find(ctx context.Context, filters ...store.Filter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := []repository.SelectCriteria{live, oldestFirst, unbounded}
	for _, f := range filters {
		if len(f.Values) == 0 {
			return []T{}, nil
		}
		criteria = append(criteria, where(f))
	}

	records, _, err := t.repo.List(ctx, criteria...)
	if err != nil {
		return nil, store.StorageFailure(err, fmt.Sprintf("find %s", t.family))
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// FindByID returns the live row id or a NotFound error.
func (t *Table[T]) FindByID(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	record := model.New[T]()
	err := t.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Apply(live).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, store.NotFound(t.family, id)
	}
	if err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("find %s %s", t.family, id))
	}
	return record, nil
}

// Insert stores record as a new row.
func (t *Table[T]) Insert(ctx context.Context, record T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	created, err := t.repo.Create(ctx, record)
	if err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("insert %s", t.family))
	}
	return created, nil
}

// Update overwrites the live row with the id of record. It returns a
// NotFound error when the row is absent or soft deleted.
func (t *Table[T]) Update(ctx context.Context, record T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	res, err := t.db.NewUpdate().
		Model(record).
		WherePK().
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("update %s", t.family))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("update %s", t.family))
	}
	if n == 0 {
		return zero, store.NotFound(t.family, record.GetBase().ID)
	}
	return record, nil
}
