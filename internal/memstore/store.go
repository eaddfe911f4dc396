// Package memstore is an in-memory implementation of the store contract.
//
// Transactions are copy-on-write: the closure works on a private copy of the
// state which replaces the shared state only when it returns nil. Columns are
// resolved through the same bun struct tags the SQL store uses, so filters
// behave alike in both.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// Operation names accepted by FailOn and Calls.
const (
	OpFind               = "find"
	OpFindByID           = "find_by_id"
	OpInsert             = "insert"
	OpUpdate             = "update"
	OpSoftDeleteByID     = "soft_delete_by_id"
	OpSoftDeleteByParent = "soft_delete_by_parent"
	OpCommit             = "commit"
)

type row struct {
	seq    uint64
	record model.Entity
}

type state map[model.Family]map[uuid.UUID]row

func (s state) clone() state {
	out := make(state, len(s))
	for family, rows := range s {
		out[family] = maps.Clone(rows)
	}
	return out
}

type fault struct {
	op     string
	family model.Family
	err    error
}

// Store keeps rows of every family in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex // serialises writers so a commit never drops a concurrent write
	data   state
	seq    uint64
	faults []fault
	calls  map[string]int
}

var _ store.Transactor = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(state), calls: make(map[string]int)}
}

// FailOn makes the next op on family return err. An empty family matches any.
func (s *Store) FailOn(op string, family model.Family, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{op: op, family: family, err: err})
}

// Calls returns how many times op was attempted.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// ResetCalls clears the call counters.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// Raw returns a copy of the stored record including soft-deleted ones.
func (s *Store) Raw(family model.Family, id uuid.UUID) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[family][id]
	if !ok {
		return nil, false
	}
	return model.Clone(r.record), true
}

// Count returns the number of rows of family, soft-deleted ones included.
func (s *Store) Count(family model.Family) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[family])
}

// enter records a call to op and returns a pending injected fault. The
// caller must hold mu for writing.
func (s *Store) enter(op string, family model.Family) error {
	s.calls[op]++
	for i, f := range s.faults {
		if f.op == op && (f.family == "" || f.family == family) {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f.err
		}
	}
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// RunInTx implements store.Transactor.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	tx := &memTx{store: s, data: work}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCommit, ""); err != nil {
		return store.StorageFailure(err, "commit")
	}
	s.data = work
	return nil
}

type memTx struct {
	store *Store
	data  state
}

func (tx *memTx) SoftDeleteByID(ctx context.Context, family model.Family, id uuid.UUID, stamp store.Stamp) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.store.mu.Lock()
	err := tx.store.enter(OpSoftDeleteByID, family)
	tx.store.mu.Unlock()
	if err != nil {
		return store.StorageFailure(err, fmt.Sprintf("soft delete %s", family))
	}

	r, ok := tx.data[family][id]
	if !ok || r.record.GetBase().IsDeleted {
		return store.NotFound(family, id)
	}
	tx.markDeleted(family, id, r, stamp)
	return nil
}

func (tx *memTx) SoftDeleteByParent(ctx context.Context, family model.Family, foreignKey string, parentIDs []uuid.UUID, stamp store.Stamp) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx.store.mu.Lock()
	err := tx.store.enter(OpSoftDeleteByParent, family)
	tx.store.mu.Unlock()
	if err != nil {
		return nil, store.StorageFailure(err, fmt.Sprintf("soft delete %s by %s", family, foreignKey))
	}

	filter := store.In(foreignKey, store.IDs(parentIDs)...)
	var hits []row
	for _, r := range tx.data[family] {
		if !r.record.GetBase().IsDeleted && matches(r.record, filter) {
			hits = append(hits, r)
		}
	}
	sortRows(hits)

	ids := make([]uuid.UUID, len(hits))
	for i, r := range hits {
		ids[i] = r.record.GetBase().ID
		tx.markDeleted(family, ids[i], r, stamp)
	}
	return ids, nil
}

// markDeleted replaces the row with a flagged copy; the committed state still
// points at the original.
func (tx *memTx) markDeleted(family model.Family, id uuid.UUID, r row, stamp store.Stamp) {
	cp := model.Clone(r.record)
	cp.GetBase().IsDeleted = true
	cp.GetBase().StampUpdated(stamp.Actor, stamp.At)
	tx.data[family][id] = row{seq: r.seq, record: cp}
}

func matches(record model.Entity, filters ...store.Filter) bool {
	for _, f := range filters {
		value, ok := columnValue(record, f.Column)
		if !ok {
			return false
		}
		hit := false
		for _, want := range f.Values {
			if equalValues(value, want) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func sortRows(rows []row) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
}
