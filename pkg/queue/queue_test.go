package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewBounded(t *testing.T) {
	q := NewBounded[int](10)

	if q.Cap() != 10 {
		t.Errorf("Cap() = %d, want 10", q.Cap())
	}
	if q.Size() != 0 {
		t.Errorf("Size() = %d, want 0", q.Size())
	}

	// A capacity below 1 is clamped to 1.
	q = NewBounded[int](0)
	if q.Cap() != 1 {
		t.Errorf("Cap() with capacity 0 = %d, want 1", q.Cap())
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewBounded[int](10)

	for i := 1; i <= 5; i++ {
		if err := q.Put(i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	for i := 1; i <= 5; i++ {
		got, err := q.Take()
		if err != nil {
			t.Fatalf("Take() error = %v", err)
		}
		if got != i {
			t.Errorf("Take() = %d, want %d", got, i)
		}
	}
}

func TestQueue_Size(t *testing.T) {
	q := NewBounded[string](4)

	q.Put("a")
	q.Put("b")
	if q.Size() != 2 {
		t.Errorf("Size() = %d, want 2", q.Size())
	}

	q.Take()
	if q.Size() != 1 {
		t.Errorf("Size() = %d, want 1", q.Size())
	}
}

// Capacity-2 queue: "a" and "b" succeed immediately, "c" blocks until a
// consumer takes "a", and the drain order is a, b, c.
func TestQueue_PutBlocksWhenFull(t *testing.T) {
	q := NewBounded[string](2)

	if err := q.Put("a"); err != nil {
		t.Fatalf(`Put("a") error = %v`, err)
	}
	if err := q.Put("b"); err != nil {
		t.Fatalf(`Put("b") error = %v`, err)
	}

	putDone := make(chan error, 1)
	go func() {
		putDone <- q.Put("c")
	}()

	select {
	case err := <-putDone:
		t.Fatalf(`Put("c") on a full queue returned early with %v`, err)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := q.Take()
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if got != "a" {
		t.Errorf(`Take() = %q, want "a"`, got)
	}

	select {
	case err := <-putDone:
		if err != nil {
			t.Fatalf(`blocked Put("c") error = %v`, err)
		}
	case <-time.After(time.Second):
		t.Fatal(`Put("c") still blocked after Take() freed a slot`)
	}

	if q.Size() != 2 {
		t.Errorf("Size() after unblocked put = %d, want 2", q.Size())
	}

	for _, want := range []string{"b", "c"} {
		got, err := q.Take()
		if err != nil {
			t.Fatalf("Take() error = %v", err)
		}
		if got != want {
			t.Errorf("Take() = %q, want %q", got, want)
		}
	}
}

func TestQueue_TakeBlocksWhenEmpty(t *testing.T) {
	q := NewBounded[int](2)

	takeDone := make(chan int, 1)
	go func() {
		v, err := q.Take()
		if err != nil {
			return
		}
		takeDone <- v
	}()

	select {
	case v := <-takeDone:
		t.Fatalf("Take() on an empty queue returned early with %d", v)
	case <-time.After(50 * time.Millisecond):
	}

	if err := q.Put(42); err != nil {
		t.Fatalf("Put(42) error = %v", err)
	}

	select {
	case v := <-takeDone:
		if v != 42 {
			t.Errorf("Take() = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Take() still blocked after Put()")
	}
}

func TestQueue_ShutdownEmptyQueue(t *testing.T) {
	q := NewBounded[int](2)
	q.Shutdown()

	// Take must fail immediately rather than block forever.
	done := make(chan error, 1)
	go func() {
		_, err := q.Take()
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Take() after shutdown error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Take() blocked on a shut-down empty queue")
	}

	if err := q.Put(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after shutdown error = %v, want ErrClosed", err)
	}
}

func TestQueue_ShutdownDrainsPendingItems(t *testing.T) {
	q := NewBounded[int](4)
	q.Put(1)
	q.Put(2)
	q.Put(3)

	q.Shutdown()

	for i := 1; i <= 3; i++ {
		got, err := q.Take()
		if err != nil {
			t.Fatalf("Take() while draining error = %v", err)
		}
		if got != i {
			t.Errorf("Take() = %d, want %d", got, i)
		}
	}

	if _, err := q.Take(); !errors.Is(err, ErrClosed) {
		t.Errorf("Take() after drain error = %v, want ErrClosed", err)
	}
}

func TestQueue_ShutdownUnblocksWaiters(t *testing.T) {
	full := NewBounded[int](1)
	full.Put(1) // fill so the next Put blocks

	putErr := make(chan error, 1)
	go func() {
		putErr <- full.Put(2)
	}()

	empty := NewBounded[int](1)
	takeErr := make(chan error, 1)
	go func() {
		_, err := empty.Take()
		takeErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	full.Shutdown()
	empty.Shutdown()

	select {
	case err := <-putErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Put() error after shutdown = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Put() not released by Shutdown()")
	}

	select {
	case err := <-takeErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Take() error after shutdown = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Take() not released by Shutdown()")
	}
}

func TestQueue_ShutdownIdempotent(t *testing.T) {
	q := NewBounded[int](2)
	q.Put(1)

	q.Shutdown()
	q.Shutdown()
	q.Shutdown()

	if !q.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown()")
	}

	got, err := q.Take()
	if err != nil || got != 1 {
		t.Errorf("Take() = %d, %v, want 1, nil", got, err)
	}
}

func TestQueue_TryPutTryTake(t *testing.T) {
	q := NewBounded[string](1)

	ok, err := q.TryPut("a")
	if err != nil || !ok {
		t.Fatalf("TryPut() = %v, %v, want true, nil", ok, err)
	}

	// Full queue: TryPut reports false without blocking.
	ok, err = q.TryPut("b")
	if err != nil {
		t.Fatalf("TryPut() on full queue error = %v", err)
	}
	if ok {
		t.Error("TryPut() on full queue = true, want false")
	}

	got, ok, err := q.TryTake()
	if err != nil || !ok || got != "a" {
		t.Fatalf("TryTake() = %q, %v, %v, want \"a\", true, nil", got, ok, err)
	}

	// Empty but open: no error, just not ok.
	_, ok, err = q.TryTake()
	if err != nil {
		t.Fatalf("TryTake() on empty queue error = %v", err)
	}
	if ok {
		t.Error("TryTake() on empty queue = true, want false")
	}

	q.Shutdown()
	if _, err := q.TryPut("c"); !errors.Is(err, ErrClosed) {
		t.Errorf("TryPut() after shutdown error = %v, want ErrClosed", err)
	}
	if _, _, err := q.TryTake(); !errors.Is(err, ErrClosed) {
		t.Errorf("TryTake() after shutdown error = %v, want ErrClosed", err)
	}
}

func TestQueue_TakeContextCancel(t *testing.T) {
	q := NewBounded[int](2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.TakeContext(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("TakeContext() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TakeContext() not released by cancellation")
	}
}

func TestQueue_PutContextCancel(t *testing.T) {
	q := NewBounded[int](1)
	q.Put(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := q.PutContext(ctx, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("PutContext() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	const producers = 4
	const consumers = 4
	const perProducer = 1000

	q := NewBounded[int](8)

	var produced sync.WaitGroup
	produced.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Put(1); err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
			}
		}()
	}

	var sum int64
	var mu sync.Mutex
	var consumed sync.WaitGroup
	consumed.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer consumed.Done()
			for {
				v, err := q.Take()
				if err != nil {
					return
				}
				mu.Lock()
				sum += int64(v)
				mu.Unlock()
			}
		}()
	}

	produced.Wait()
	q.Shutdown()
	consumed.Wait()

	if sum != producers*perProducer {
		t.Errorf("consumed sum = %d, want %d", sum, producers*perProducer)
	}
}

// Single producer FIFO order survives a concurrent consumer.
func TestQueue_SingleProducerOrderUnderConcurrency(t *testing.T) {
	const n = 2000
	q := NewBounded[int](4)

	go func() {
		for i := 0; i < n; i++ {
			q.Put(i)
		}
		q.Shutdown()
	}()

	next := 0
	for {
		v, err := q.Take()
		if err != nil {
			break
		}
		if v != next {
			t.Fatalf("Take() = %d, want %d", v, next)
		}
		next++
	}
	if next != n {
		t.Errorf("consumed %d items, want %d", next, n)
	}
}
