// Package store defines the backing-store contract the repositories and the
// cascade coordinator are written against.
//
// Two implementations live under internal/: bunstore for SQL databases and
// memstore for tests and demos. Both exclude soft-deleted rows from every
// read and report missing rows with NotFound.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/model"
)

// Filter is an equality predicate on a column. A filter with several values
// matches any of them.
type Filter struct {
	Column string
	Values []any
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Values: []any{value}}
}

// In matches rows whose column equals one of values. An empty In matches
// nothing.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Values: values}
}

// IDs converts ids for use with In.
func IDs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Stamp carries the actor and time recorded on a mutation.
type Stamp struct {
	Actor string
	At    time.Time
}

// Table reads and writes the live rows of one family.
type Table[T model.Entity] interface {
	// Find returns live rows matching every filter, oldest first.
	Find(ctx context.Context, filters ...Filter) ([]T, error)
	// FindByID returns the live row with id or a NotFound error.
	FindByID(ctx context.Context, id uuid.UUID) (T, error)
	// Insert persists a new row and returns it as stored.
	Insert(ctx context.Context, record T) (T, error)
	// Update overwrites the live row with the same id. It returns NotFound
	// when the row is missing or already soft-deleted.
	Update(ctx context.Context, record T) (T, error)
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// SoftDeleteByID flags the live row id of family as deleted. It returns
	// NotFound when there is no such live row.
	SoftDeleteByID(ctx context.Context, family model.Family, id uuid.UUID, stamp Stamp) error
	// SoftDeleteByParent flags every live row of family whose foreignKey is
	// one of parentIDs and returns their ids.
	SoftDeleteByParent(ctx context.Context, family model.Family, foreignKey string, parentIDs []uuid.UUID, stamp Stamp) ([]uuid.UUID, error)
}

// Transactor runs fn as a single unit of work. Any error returned by fn
// rolls back every write made through its Tx.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
