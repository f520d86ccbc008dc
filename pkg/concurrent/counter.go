// Package concurrent provides small lock-free coordination primitives shared
// by the queue and coordinator packages: an atomic counter and a cross-goroutine
// visibility flag.
package concurrent

import "sync/atomic"

// Counter is a signed 64-bit counter safe for concurrent use by any number of
// goroutines. Every update is applied exactly once; no increment or decrement
// is lost regardless of how many callers race.
//
// On overflow the value wraps per two's-complement int64 arithmetic. It is
// never clamped or saturated.
//
// The zero value is a Counter at 0, ready to use.
type Counter struct {
	v atomic.Int64
}

// NewCounter creates a Counter starting at initial.
func NewCounter(initial int64) *Counter {
	c := &Counter{}
	c.v.Store(initial)
	return c
}

// Increment atomically adds 1 and returns the new value.
func (c *Counter) Increment() int64 {
	return c.v.Add(1)
}

// Decrement atomically subtracts 1 and returns the new value.
func (c *Counter) Decrement() int64 {
	return c.v.Add(-1)
}

// Add atomically adds delta, which may be negative, and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return c.v.Add(delta)
}

// Get returns the current value. The value may already be stale by the time
// the caller observes it; only the atomicity of each individual update is
// guaranteed, not any ordering relative to concurrent writers.
func (c *Counter) Get() int64 {
	return c.v.Load()
}

// CompareAndSwap sets the counter to new only if it currently holds expected,
// and reports whether the swap happened.
func (c *Counter) CompareAndSwap(expected, new int64) bool {
	return c.v.CompareAndSwap(expected, new)
}
