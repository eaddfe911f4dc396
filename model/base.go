package model

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and audit stamps shared by every persisted record.
type Base struct {
	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
	CreatedBy string    `bun:"created_by" json:"created_by"`
	UpdatedBy string    `bun:"updated_by" json:"updated_by"`
	IsDeleted bool      `bun:"is_deleted,notnull,default:false" json:"is_deleted"`
}

// GetBase gives generic code access to the shared columns.
func (b *Base) GetBase() *Base { return b }

// StampCreated prepares a brand new record for insertion.
func (b *Base) StampCreated(actor string, at time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = at
	b.UpdatedAt = at
	b.CreatedBy = actor
	b.UpdatedBy = actor
	b.IsDeleted = false
}

// StampUpdated records the last writer.
func (b *Base) StampUpdated(actor string, at time.Time) {
	b.UpdatedAt = at
	b.UpdatedBy = actor
}

// Entity is implemented by pointers to every persisted record type.
type Entity interface {
	GetBase() *Base
	Family() Family
	Validate() error
}

// SealedField points at a protected identifier and its cleartext display
// fragment. Value holds plaintext in memory and ciphertext at rest.
type SealedField struct {
	Name  string
	Value *string
	Last4 *string
}

// Protected is implemented by entities carrying identifiers that must never
// be stored or cached in plaintext.
type Protected interface {
	Entity
	SealedFields() []SealedField
}

// Child is implemented by records that belong to a row of their family's
// parent. A child may only be written while its parent is live.
type Child interface {
	Entity
	ParentID() uuid.UUID
}

// New allocates an empty record of the pointer type T.
func New[T Entity]() T {
	var zero T
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T)
}

// Clone returns a shallow copy of record. Nil records are returned as is.
func Clone[T Entity](record T) T {
	v := reflect.ValueOf(record)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return record
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(T)
}

// CloneAll clones every record of records.
func CloneAll[T Entity](records []T) []T {
	if records == nil {
		return nil
	}
	out := make([]T, len(records))
	for i, r := range records {
		out[i] = Clone(r)
	}
	return out
}
