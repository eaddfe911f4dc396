// Package audit receives a record of every mutation made through the
// repositories. Recording is fire-and-forget: a failing or slow sink never
// fails or blocks the write that produced the entry.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the kind of mutation.
type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionSoftDelete     Action = "soft_delete"
	ActionCascadeDelete  Action = "cascade_delete"
	ActionPasswordChange Action = "password_change"
	ActionCoverageAdd    Action = "coverage_add"
	ActionCoverageRemove Action = "coverage_remove"
)

// Entry is one audited mutation.
type Entry struct {
	Timestamp   time.Time   `msgpack:"ts" json:"timestamp"`
	Actor       string      `msgpack:"actor" json:"actor"`
	Action      Action      `msgpack:"action" json:"action"`
	Family      string      `msgpack:"family" json:"family"`
	EntityID    uuid.UUID   `msgpack:"entity_id" json:"entity_id"`
	Description string      `msgpack:"description" json:"description"`
	RelatedIDs  []uuid.UUID `msgpack:"related_ids,omitempty" json:"related_ids,omitempty"`
}

// Recorder accepts audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Sink persists or forwards entries.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
