package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBufferSize is the number of entries an AsyncRecorder holds before
// it starts dropping.
const DefaultBufferSize = 256

// AsyncRecorder hands entries to a background worker which writes them to a
// Sink. When the buffer is full entries are dropped and counted.
type AsyncRecorder struct {
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
	dropped prometheus.Counter
	size    int

	mu     sync.RWMutex
	closed bool
	inbox  chan Entry
	done   chan struct{}
}

// Option configures an AsyncRecorder.
type Option func(*AsyncRecorder)

// WithLogger sets the logger used for drops and sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *AsyncRecorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBufferSize overrides DefaultBufferSize.
func WithBufferSize(size int) Option {
	return func(r *AsyncRecorder) {
		if size > 0 {
			r.size = size
		}
	}
}

// WithClock sets the time source for entries without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *AsyncRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRegisterer registers the dropped entries counter on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *AsyncRecorder) {
		r.dropped = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "household_store",
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit entries dropped because the buffer was full or the recorder closed.",
		})
	}
}

// NewAsyncRecorder starts a recorder writing to sink. Call Close to flush
// pending entries and stop the worker.
func NewAsyncRecorder(sink Sink, opts ...Option) *AsyncRecorder {
	r := &AsyncRecorder{
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
		size:   DefaultBufferSize,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.inbox = make(chan Entry, r.size)
	go r.run()
	return r
}

// Record queues entry without blocking.
func (r *AsyncRecorder) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(ctx, entry, "recorder closed")
		return
	}

	select {
	case r.inbox <- entry:
	default:
		r.drop(ctx, entry, "buffer full")
	}
}

func (r *AsyncRecorder) drop(ctx context.Context, entry Entry, reason string) {
	if r.dropped != nil {
		r.dropped.Inc()
	}
	r.logger.WarnContext(ctx, "audit entry dropped",
		"reason", reason, "action", entry.Action, "family", entry.Family, "id", entry.EntityID)
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for entry := range r.inbox {
		if err := r.sink.Write(context.Background(), entry); err != nil {
			r.logger.Warn("audit sink failed",
				"action", entry.Action, "family", entry.Family, "id", entry.EntityID, "error", err)
		}
	}
}

// Close stops accepting entries and waits until the queued ones are written
// or ctx ends.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.inbox)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
