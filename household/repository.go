// Package household exposes one repository per entity family of the
// household record store.
//
// Every repository reads through the shared cache, invalidates its family
// on writes and reports mutations to an audit recorder. Families carrying
// sensitive identifiers are sealed before they reach the store and opened
// before they are returned; the cache only ever holds the sealed form.
package household

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/fieldcrypt"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/repositorycache"
	"github.com/goliatone/go-household-store/store"
)

// Repository is the CRUD surface shared by every family.
type Repository[T model.Entity] struct {
	cached *repositorycache.CachedRepository[T]
	codec  *fieldcrypt.Codec
	audit  audit.Recorder
	parent parentCheck[T]
}

// parentCheck fails with a NotFound error when the parent row of record is
// not live.
type parentCheck[T model.Entity] func(ctx context.Context, record T) error

func newRepository[T model.Entity](cached *repositorycache.CachedRepository[T], codec *fieldcrypt.Codec, recorder audit.Recorder, parent parentCheck[T]) *Repository[T] {
	return &Repository[T]{cached: cached, codec: codec, audit: recorder, parent: parent}
}

// liveParent checks children of T against the live rows of parents.
func liveParent[T model.Entity, P model.Entity](parents store.Table[P]) parentCheck[T] {
	return func(ctx context.Context, record T) error {
		child, ok := any(record).(model.Child)
		if !ok {
			return nil
		}
		_, err := parents.FindByID(ctx, child.ParentID())
		return err
	}
}

// Family returns the family served by the repository.
func (r *Repository[T]) Family() model.Family { return r.cached.Family() }

// GetByID returns the live record id. Point reads are never cached.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	record, err := r.cached.GetByID(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := r.open(record); err != nil {
		var zero T
		return zero, err
	}
	return record, nil
}

// Add persists record on behalf of actor and returns it with its id and
// stamps. Sensitive identifiers are returned in plaintext. A record whose
// parent is missing or soft deleted is rejected with a NotFound error for
// the parent.
func (r *Repository[T]) Add(ctx context.Context, record T, actor string) (T, error) {
	var zero T

	sealed, err := r.seal(record)
	if err != nil {
		return zero, err
	}
	if err := r.requireParent(ctx, sealed); err != nil {
		return zero, err
	}
	created, err := r.cached.Add(ctx, sealed, actor)
	if err != nil {
		return zero, err
	}

	r.record(ctx, actor, audit.ActionCreate, created.GetBase().ID, "created")
	if err := r.open(created); err != nil {
		return zero, err
	}
	return created, nil
}

// Update overwrites the live record with the same id. It returns a
// NotFound error when there is none or when its parent is not live.
func (r *Repository[T]) Update(ctx context.Context, record T, actor string) (T, error) {
	var zero T

	sealed, err := r.seal(record)
	if err != nil {
		return zero, err
	}
	if err := r.requireParent(ctx, sealed); err != nil {
		return zero, err
	}
	updated, err := r.cached.Update(ctx, sealed, actor)
	if err != nil {
		return zero, err
	}

	r.record(ctx, actor, audit.ActionUpdate, updated.GetBase().ID, "updated")
	if err := r.open(updated); err != nil {
		return zero, err
	}
	return updated, nil
}

// SoftDelete flags the live record id as deleted. Owned records are left
// alone; use CascadeDelete on households and members to remove them too.
func (r *Repository[T]) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	if err := r.cached.SoftDelete(ctx, id, actor); err != nil {
		return err
	}
	r.record(ctx, actor, audit.ActionSoftDelete, id, "soft deleted")
	return nil
}

// requireParent runs the parent check on valid records. Invalid ones are
// reported by the validation in Add and Update instead. The check and the
// write are separate store calls, so a cascade committed between them can
// still leave the new row behind.
func (r *Repository[T]) requireParent(ctx context.Context, record T) error {
	if r.parent == nil || record.Validate() != nil {
		return nil
	}
	return r.parent(ctx, record)
}

// list opens every record of a cached view.
func (r *Repository[T]) list(records []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := r.open(record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *Repository[T]) seal(record T) (T, error) {
	record = model.Clone(record)
	if p, ok := any(record).(model.Protected); ok {
		if err := r.codec.Seal(p); err != nil {
			var zero T
			return zero, err
		}
	}
	return record, nil
}

func (r *Repository[T]) open(record T) error {
	if p, ok := any(record).(model.Protected); ok {
		return r.codec.Open(p)
	}
	return nil
}

func (r *Repository[T]) record(ctx context.Context, actor string, action audit.Action, id uuid.UUID, what string, related ...uuid.UUID) {
	r.audit.Record(ctx, audit.Entry{
		Timestamp:   r.cached.Now(),
		Actor:       actor,
		Action:      action,
		Family:      r.Family().String(),
		EntityID:    id,
		Description: fmt.Sprintf("%s %s %s", r.Family(), id, what),
		RelatedIDs:  related,
	})
}
