// Package coordinator runs a pool of workers that drain a bounded queue until
// it is shut down. Task failures are isolated per item: a failing handler is
// reported and the worker moves on to the next item.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowlineio/flowline/pkg/concurrent"
	"github.com/flowlineio/flowline/pkg/logging"
	"github.com/flowlineio/flowline/pkg/queue"
)

const tracerName = "github.com/flowlineio/flowline/pkg/coordinator"

// ErrAlreadyStarted is returned by Start when the coordinator is already
// running.
var ErrAlreadyStarted = errors.New("coordinator is already running")

// Handler processes one item taken from the queue. The context carries the
// trace span for the item and is not cancelled by Shutdown: workers finish
// their current item before observing closure.
type Handler[T any] func(ctx context.Context, item T) error

// ErrorHandler receives per-item failures. err unwraps to the handler's
// original error via *TaskError.
type ErrorHandler[T any] func(item T, err error)

// TaskError wraps a failure from the Handler for a single item. It is passed
// to the ErrorHandler and never terminates the worker that produced it.
type TaskError struct {
	WorkerID string
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task failed on worker %s: %v", e.WorkerID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Observer receives processing events, e.g. for metrics export. All methods
// may be called concurrently.
type Observer interface {
	TaskCompleted(d time.Duration)
	TaskFailed()
	WorkerStarted()
	WorkerStopped()
}

// nopObserver keeps the worker loop free of nil checks.
type nopObserver struct{}

func (nopObserver) TaskCompleted(time.Duration) {}
func (nopObserver) TaskFailed()                 {}
func (nopObserver) WorkerStarted()              {}
func (nopObserver) WorkerStopped()              {}

// Config configures a Coordinator.
type Config[T any] struct {
	// Workers is the number of worker goroutines. Values below 1 are
	// treated as 1.
	Workers int

	// Handler processes each item. Required.
	Handler Handler[T]

	// OnError receives per-item failures. When nil, failures are logged
	// and dropped.
	OnError ErrorHandler[T]

	// Logger defaults to logging.NewDefaultLogger().
	Logger logging.Logger

	// Observer defaults to a no-op.
	Observer Observer
}

// Stats is a point-in-time snapshot of coordinator activity. Every field is
// advisory under concurrent processing.
type Stats struct {
	Completed     int64
	Failed        int64
	ActiveWorkers int64
	QueueDepth    int
	QueueCapacity int
}

// Coordinator drains a queue.Bounded with a fixed set of workers. Each worker
// loops taking an item, running the handler and updating the completed
// counter; queue.ErrClosed ends the loop cleanly.
type Coordinator[T any] struct {
	queue    *queue.Bounded[T]
	workers  int
	handler  Handler[T]
	onError  ErrorHandler[T]
	logger   logging.Logger
	observer Observer

	// stopping is the shutdown signal visible to any goroutine; the queue's
	// own state machine is what actually releases blocked workers.
	stopping concurrent.Flag

	started   concurrent.Counter
	completed concurrent.Counter
	failed    concurrent.Counter
	active    concurrent.Counter

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a Coordinator draining q. It does not start any workers;
// call Start.
func New[T any](q *queue.Bounded[T], cfg Config[T]) (*Coordinator[T], error) {
	if q == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if cfg.Handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	return &Coordinator[T]{
		queue:    q,
		workers:  cfg.Workers,
		handler:  cfg.Handler,
		onError:  cfg.OnError,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}, nil
}

// Start spawns the worker goroutines. It returns ErrAlreadyStarted on a
// second call.
func (c *Coordinator[T]) Start() error {
	if !c.started.CompareAndSwap(0, 1) {
		return ErrAlreadyStarted
	}

	c.wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		id := uuid.New().String()
		go c.worker(id)
	}

	c.logger.Infof("coordinator started %d workers", c.workers)
	return nil
}

// worker drains the queue until it is closed.
func (c *Coordinator[T]) worker(id string) {
	defer c.wg.Done()

	c.active.Increment()
	c.observer.WorkerStarted()
	defer func() {
		c.active.Decrement()
		c.observer.WorkerStopped()
	}()

	tracer := otel.Tracer(tracerName)
	for {
		item, err := c.queue.Take()
		if err != nil {
			// queue.ErrClosed: drained and shut down.
			c.logger.Debugf("worker %s: queue closed, exiting", id)
			return
		}
		c.process(tracer, id, item)
	}
}

// process runs the handler for one item inside a span and records the
// outcome. A failure is wrapped in *TaskError and reported; it never stops
// the worker.
func (c *Coordinator[T]) process(tracer trace.Tracer, workerID string, item T) {
	ctx, span := tracer.Start(context.Background(), "coordinator.process",
		trace.WithAttributes(attribute.String("worker.id", workerID)))
	defer span.End()

	start := time.Now()
	if err := c.invoke(ctx, item); err != nil {
		c.failed.Increment()
		c.observer.TaskFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		terr := &TaskError{WorkerID: workerID, Err: err}
		if c.onError != nil {
			c.onError(item, terr)
		} else {
			c.logger.Errorf("%v", terr)
		}
		return
	}

	c.completed.Increment()
	c.observer.TaskCompleted(time.Since(start))
}

// invoke calls the handler, converting a panic into an error so one bad item
// cannot take the worker down.
func (c *Coordinator[T]) invoke(ctx context.Context, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, item)
}

// Shutdown stops intake: it shuts the queue down, which releases every
// blocked Put/Take, then raises the stopping flag. Workers finish the items
// already in the queue and exit. Shutdown is idempotent and may be called
// from any goroutine, including a worker's handler.
func (c *Coordinator[T]) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.queue.Shutdown()
		c.stopping.Set(true)
		c.logger.Info("coordinator shutting down")
	})
}

// Stopping reports whether Shutdown has been called.
func (c *Coordinator[T]) Stopping() bool {
	return c.stopping.Get()
}

// AwaitTermination blocks until every worker has exited or timeout elapses,
// and reports whether all workers terminated in time.
func (c *Coordinator[T]) AwaitTermination(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Workers returns the configured worker count.
func (c *Coordinator[T]) Workers() int {
	return c.workers
}

// Stats returns a snapshot of processing counters and queue occupancy.
func (c *Coordinator[T]) Stats() Stats {
	return Stats{
		Completed:     c.completed.Get(),
		Failed:        c.failed.Get(),
		ActiveWorkers: c.active.Get(),
		QueueDepth:    c.queue.Size(),
		QueueCapacity: c.queue.Cap(),
	}
}
