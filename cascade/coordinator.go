package cascade

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/goliatone/go-household-store/invalidation"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

var tracer = otel.Tracer("cascade")

// Result lists the rows soft-deleted by one cascade.
type Result struct {
	Root    model.Family
	RootID  uuid.UUID
	Deleted map[model.Family][]uuid.UUID
}

// Families returns every family with at least one deleted row, sorted.
func (r Result) Families() []model.Family {
	out := make([]model.Family, 0, len(r.Deleted))
	for f, ids := range r.Deleted {
		if len(ids) > 0 {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Related returns the ids of every deleted row except the root.
func (r Result) Related() []uuid.UUID {
	var out []uuid.UUID
	for _, f := range r.Families() {
		for _, id := range r.Deleted[f] {
			if f == r.Root && id == r.RootID {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}

// Count returns the number of deleted rows, root included.
func (r Result) Count() int {
	n := 0
	for _, ids := range r.Deleted {
		n += len(ids)
	}
	return n
}

// Invalidator supersedes cached views of a family.
type Invalidator interface {
	Invalidate(family string) invalidation.Token
}

// Coordinator runs cascading soft deletes in a single transaction.
type Coordinator struct {
	graph  Graph
	tx     store.Transactor
	tokens Invalidator
	logger *slog.Logger
	now    func() time.Time
	onDone func(model.Family)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for update stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithGraph replaces the default ownership graph.
func WithGraph(g Graph) Option {
	return func(c *Coordinator) {
		c.graph = g
	}
}

// WithInvalidationHook is called once for each family invalidated after a
// commit.
func WithInvalidationHook(fn func(model.Family)) Option {
	return func(c *Coordinator) {
		c.onDone = fn
	}
}

// NewCoordinator creates a coordinator. It fails when the graph is invalid.
func NewCoordinator(tx store.Transactor, tokens Invalidator, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		graph:  DefaultGraph(),
		tx:     tx,
		tokens: tokens,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.graph.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// CascadeDelete soft-deletes the live root record and, level by level,
// every live row owned by a row deleted on the level above.
//
// All writes share one transaction. When any of them fails nothing is
// committed, no cached view is invalidated and the error is returned: a
// NotFound error when the root is not live, the context error on
// cancellation, a StorageFailure otherwise. After a commit the root family
// and every family with deleted rows are invalidated.
func (c *Coordinator) CascadeDelete(ctx context.Context, root model.Family, rootID uuid.UUID, actor string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Cascade.CascadeDelete")
	defer span.End()
	span.SetAttributes(attribute.String("family", root.String()), attribute.String("id", rootID.String()))

	if !c.graph.Has(root) {
		err := fmt.Errorf("cascade: unknown family %s", root)
		span.RecordError(err)
		return Result{}, err
	}

	stamp := store.Stamp{Actor: actor, At: c.now()}
	var result Result

	err := c.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		result = Result{Root: root, RootID: rootID, Deleted: map[model.Family][]uuid.UUID{}}

		if err := tx.SoftDeleteByID(ctx, root, rootID, stamp); err != nil {
			return err
		}
		result.Deleted[root] = []uuid.UUID{rootID}

		type level struct {
			family model.Family
			ids    []uuid.UUID
		}
		queue := []level{{family: root, ids: []uuid.UUID{rootID}}}

		for len(queue) > 0 {
			parent := queue[0]
			queue = queue[1:]

			for _, edge := range c.graph.Children(parent.family) {
				if err := ctx.Err(); err != nil {
					return err
				}

				ids, err := tx.SoftDeleteByParent(ctx, edge.Child, edge.ForeignKey, parent.ids, stamp)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					continue
				}

				result.Deleted[edge.Child] = append(result.Deleted[edge.Child], ids...)
				queue = append(queue, level{family: edge.Child, ids: ids})
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		c.logger.WarnContext(ctx, "cascade rolled back",
			"family", root, "id", rootID, "actor", actor, "error", err)
		if store.IsNotFound(err) {
			return Result{}, err
		}
		return Result{}, store.StorageFailure(err, fmt.Sprintf("cascade delete %s %s", root, rootID))
	}

	for _, family := range result.Families() {
		c.tokens.Invalidate(family.String())
		if c.onDone != nil {
			c.onDone(family)
		}
	}

	c.logger.InfoContext(ctx, "cascade committed",
		"family", root, "id", rootID, "actor", actor, "rows", result.Count())
	return result, nil
}
