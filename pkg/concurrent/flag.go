package concurrent

import "sync/atomic"

// Flag is a boolean signal intended to be written by one controller goroutine
// and read by any number of others. A Set is immediately visible to every
// subsequent Get on any goroutine; no reader observes a stale value
// indefinitely.
//
// The single-writer discipline is a usage contract, not an enforced invariant:
// concurrent writers are last-write-wins. Use Counter.CompareAndSwap when a
// read-modify-write needs to be atomic.
//
// The zero value is an unset Flag, ready to use.
type Flag struct {
	v atomic.Bool
}

// Set writes the value.
func (f *Flag) Set(value bool) {
	f.v.Store(value)
}

// Get returns the most recently set value.
func (f *Flag) Get() bool {
	return f.v.Load()
}
