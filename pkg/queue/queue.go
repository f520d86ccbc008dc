// Package queue provides a fixed-capacity FIFO queue with blocking Put and
// Take and cooperative shutdown. It is the hand-off point between producers
// and the coordinator's workers: ownership of each item transfers fully to
// the taker.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Put once the queue has been shut down, and by Take
// once the queue has been shut down and every remaining item has been drained.
// It signals intended termination, not a fault; callers are expected to treat
// it as the end of the stream.
var ErrClosed = errors.New("queue is closed")

type state int

const (
	stateOpen state = iota
	stateShuttingDown
	stateClosed
)

// Bounded is a fixed-capacity FIFO queue safe for any number of concurrent
// producers and consumers. Put blocks while the queue is full, Take blocks
// while it is empty, and Shutdown releases all blocked callers.
//
// Shutdown does not discard unconsumed work: Take keeps returning the
// remaining items in FIFO order and only starts returning ErrClosed once the
// queue is drained.
//
// Item order is strictly FIFO. Wakeup order among several blocked producers
// (or consumers) is unspecified; do not rely on it.
type Bounded[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf   []T
	head  int
	tail  int
	size  int
	state state
}

// NewBounded creates a queue holding at most capacity items. A capacity below
// 1 is treated as 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}

	q := &Bounded[T]{
		buf: make([]T, capacity),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put enqueues item, blocking while the queue is full. It returns ErrClosed
// if the queue is shut down, including while the caller is blocked waiting
// for space.
func (q *Bounded[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Re-check on every wakeup; a signal does not imply the predicate holds.
	for q.size == len(q.buf) && q.state == stateOpen {
		q.notFull.Wait()
	}
	if q.state != stateOpen {
		return ErrClosed
	}

	q.enqueueLocked(item)
	return nil
}

// PutContext is Put with cancellation: it additionally stops waiting and
// returns ctx.Err() when ctx is cancelled.
func (q *Bounded[T]) PutContext(ctx context.Context, item T) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notFull.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == len(q.buf) && q.state == stateOpen && ctx.Err() == nil {
		q.notFull.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.state != stateOpen {
		return ErrClosed
	}

	q.enqueueLocked(item)
	return nil
}

// TryPut enqueues item without blocking. It reports false when the queue is
// full, and returns ErrClosed when the queue is shut down.
func (q *Bounded[T]) TryPut(item T) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateOpen {
		return false, ErrClosed
	}
	if q.size == len(q.buf) {
		return false, nil
	}

	q.enqueueLocked(item)
	return true, nil
}

// Take dequeues the oldest item, blocking while the queue is empty. Once the
// queue has been shut down AND drained, Take returns ErrClosed; until then it
// keeps returning the remaining items in FIFO order.
func (q *Bounded[T]) Take() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && q.state == stateOpen {
		q.notEmpty.Wait()
	}
	if q.size == 0 {
		// Shut down and drained: no more items will ever arrive.
		q.state = stateClosed
		var zero T
		return zero, ErrClosed
	}

	return q.dequeueLocked(), nil
}

// TakeContext is Take with cancellation: it additionally stops waiting and
// returns ctx.Err() when ctx is cancelled.
func (q *Bounded[T]) TakeContext(ctx context.Context) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && q.state == stateOpen && ctx.Err() == nil {
		q.notEmpty.Wait()
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if q.size == 0 {
		q.state = stateClosed
		return zero, ErrClosed
	}

	return q.dequeueLocked(), nil
}

// TryTake dequeues without blocking. It reports false when the queue is empty
// but still open, and returns ErrClosed once the queue is shut down and
// drained.
func (q *Bounded[T]) TryTake() (T, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		if q.state != stateOpen {
			q.state = stateClosed
			return zero, false, ErrClosed
		}
		return zero, false, nil
	}

	return q.dequeueLocked(), true, nil
}

// Shutdown rejects further Puts and wakes every blocked caller so it can
// observe closure. Items already enqueued remain takeable until drained.
// Shutdown is idempotent and may be called from any goroutine, including a
// consumer.
func (q *Bounded[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateOpen {
		return
	}
	if q.size == 0 {
		q.state = stateClosed
	} else {
		q.state = stateShuttingDown
	}

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// IsShutdown reports whether Shutdown has been called.
func (q *Bounded[T]) IsShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state != stateOpen
}

// Size returns the current occupancy. The value is advisory: it may change
// the moment the lock is released.
func (q *Bounded[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity.
func (q *Bounded[T]) Cap() int {
	return len(q.buf)
}

// enqueueLocked appends item at the tail. Caller holds q.mu and has verified
// there is room.
func (q *Bounded[T]) enqueueLocked(item T) {
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	q.notEmpty.Signal()
}

// dequeueLocked removes and returns the head item. Caller holds q.mu and has
// verified the queue is non-empty.
func (q *Bounded[T]) dequeueLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // drop the reference; ownership moves to the caller
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	if q.size == 0 && q.state == stateShuttingDown {
		q.state = stateClosed
	}
	q.notFull.Signal()
	return item
}
