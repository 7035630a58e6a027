package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/patchlib/internal/filter"
	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/metrics"
	"github.com/roach88/patchlib/internal/view"
)

// ErrStopped is returned for events that were still queued when the engine
// stopped, and by Submit once the engine no longer accepts events.
var ErrStopped = errors.New("engine stopped")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the metrics collector. Defaults to metrics.Noop.
func WithMetrics(c metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithSessionIDs sets the export session id generator. Defaults to
// UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// Engine owns the view over a record source and the filter pipeline
// attached to it.
//
// Thread-safety model:
//   - Enqueue, Submit: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Refresh, RowEdited, Export: safe from any goroutine; view writers are
//     serialised, so they never interleave with a queued refresh
type Engine struct {
	src     library.RecordSource
	view    *view.View
	log     *slog.Logger
	metrics metrics.Collector
	ids     SessionIDGenerator
	queue   *eventQueue

	mu        sync.Mutex
	pipeline  *filter.Pipeline
	evaluated uint64 // pipeline evaluations already reported
}

// New creates an Engine over src. The view is empty until the first
// Refresh.
func New(src library.RecordSource, opts ...Option) *Engine {
	e := &Engine{
		src:     src,
		log:     slog.Default(),
		metrics: metrics.Noop{},
		ids:     UUIDv7Generator{},
		queue:   newEventQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.view = view.New(src, view.WithLogger(e.log))
	return e
}

// View returns the engine's view.
func (e *Engine) View() *view.View {
	return e.view
}

// Pipeline returns the attached pipeline, or nil before SetStages.
func (e *Engine) Pipeline() *filter.Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline
}

// SetStages replaces the pipeline with a new one over stages, closing the
// previous pipeline.
func (e *Engine) SetStages(stages ...*filter.Stage) *filter.Pipeline {
	p := filter.NewPipeline(e.view, stages, filter.WithLogger(e.log))

	e.mu.Lock()
	old := e.pipeline
	e.pipeline = p
	e.evaluated = 0
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	e.log.Debug("pipeline attached", "stages", len(stages))
	return p
}

// Refresh rebuilds the view from the record source.
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()
	err := e.view.RefreshAll(ctx)
	e.metrics.RecordRefresh("structural", e.view.RowCount(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	e.recordFilter()
	return nil
}

// RowEdited re-reads one sound after an edit that cannot change
// membership (rename, category, tags).
func (e *Engine) RowEdited(ctx context.Context, uid library.UID) error {
	start := time.Now()
	err := e.view.RefreshRow(ctx, uid)
	e.metrics.RecordRefresh("row", e.view.RowCount(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("refresh sound %d: %w", uid, err)
	}
	e.recordFilter()
	return nil
}

// recordFilter brings the pipeline up to date and reports how much work
// that took.
func (e *Engine) recordFilter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipeline == nil {
		return
	}
	rows := e.pipeline.RowCount()
	total := e.pipeline.Stats().Total()
	e.metrics.RecordFilter(rows, total-e.evaluated)
	e.evaluated = total
}

// Enqueue submits an event for processing by the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Submit enqueues ev and waits for its result.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	done := make(chan error, 1)
	ev.Done = done
	if !e.queue.Enqueue(ev) {
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued events in FIFO order until ctx is cancelled or Stop
// is called. Must be called from exactly one goroutine.
//
// A failing event is logged and reported on its Done channel; the loop
// continues with the next event.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting")
	defer e.failPending()

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			err := e.processEvent(ctx, ev)
			if err != nil {
				e.log.Error("event failed", "type", ev.Type.String(), "uid", ev.UID, "error", err)
			}
			if ev.Done != nil {
				ev.Done <- err
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed with the queue.
			if e.queue.Len() == 0 && e.closed() {
				e.log.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once it has drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

func (e *Engine) failPending() {
	for _, ev := range e.queue.Drain() {
		if ev.Done != nil {
			ev.Done <- ErrStopped
		}
	}
}

// processEvent routes an event to its handler. Called only from Run.
func (e *Engine) processEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventRefresh:
		return e.Refresh(ctx)

	case EventRowEdited:
		return e.RowEdited(ctx, ev.UID)

	case EventApply:
		if ev.Apply == nil {
			return fmt.Errorf("apply event missing function")
		}
		if err := ev.Apply(ctx); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		e.recordFilter()
		return nil

	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}
