package memstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// Table is the store.Table view of one family held by a Store.
type Table[T model.Entity] struct {
	store  *Store
	family model.Family
}

var _ store.Table[*model.Member] = (*Table[*model.Member])(nil)

// NewTable binds a table for the family of T to s.
func NewTable[T model.Entity](s *Store) *Table[T] {
	return &Table[T]{store: s, family: model.New[T]().Family()}
}

// Find returns copies of the live rows matching filters, oldest first.
func (t *Table[T]) Find(ctx context.Context, filters ...store.Filter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.enter(OpFind, t.family); err != nil {
		return nil, store.StorageFailure(err, fmt.Sprintf("find %s", t.family))
	}

	var hits []row
	for _, r := range t.store.data[t.family] {
		if !r.record.GetBase().IsDeleted && matches(r.record, filters...) {
			hits = append(hits, r)
		}
	}
	sortRows(hits)

	out := make([]T, 0, len(hits))
	for _, r := range hits {
		out = append(out, model.Clone(r.record).(T))
	}
	return out, nil
}

// FindByID returns a copy of the live row id or a NotFound error.
func (t *Table[T]) FindByID(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.enter(OpFindByID, t.family); err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("find %s", t.family))
	}

	r, ok := t.store.data[t.family][id]
	if !ok || r.record.GetBase().IsDeleted {
		return zero, store.NotFound(t.family, id)
	}
	return model.Clone(r.record).(T), nil
}

// Insert stores a copy of record. Ids must be unique within the family.
func (t *Table[T]) Insert(ctx context.Context, record T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.enter(OpInsert, t.family); err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("insert %s", t.family))
	}

	id := record.GetBase().ID
	if id == uuid.Nil {
		return zero, store.StorageFailure(errors.New("missing id"), fmt.Sprintf("insert %s", t.family))
	}
	rows := t.store.data[t.family]
	if rows == nil {
		rows = make(map[uuid.UUID]row)
		t.store.data[t.family] = rows
	}
	if _, exists := rows[id]; exists {
		return zero, store.StorageFailure(fmt.Errorf("duplicate id %s", id), fmt.Sprintf("insert %s", t.family))
	}

	rows[id] = row{seq: t.store.nextSeq(), record: model.Clone(record)}
	return model.Clone(record), nil
}

// Update replaces the live row with the id of record. It returns a
// NotFound error when the row is absent or soft deleted.
func (t *Table[T]) Update(ctx context.Context, record T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.enter(OpUpdate, t.family); err != nil {
		return zero, store.StorageFailure(err, fmt.Sprintf("update %s", t.family))
	}

	id := record.GetBase().ID
	r, ok := t.store.data[t.family][id]
	if !ok || r.record.GetBase().IsDeleted {
		return zero, store.NotFound(t.family, id)
	}

	t.store.data[t.family][id] = row{seq: r.seq, record: model.Clone(record)}
	return model.Clone(record), nil
}
