// SPDX-License-Identifier: MIT
/*
Package appendlog provides an append-only sequence with one writer and any
number of lock-free readers.

Readers observe a published prefix [0, Len()). The writer fills the slot past
the published length first and only then publishes the new length through an
atomic pointer store, so a reader that loads length L can read indices below L
without a lock while the writer keeps appending. Slots below a published
length are never written again; Reset publishes a fresh backing array instead
of clearing the old one, so readers holding an older snapshot keep a valid,
unchanged view.
*/
package appendlog

import (
	"sync"
	"sync/atomic"
)

// Log is an append-only sequence of T. The zero value is ready to use.
type Log[T any] struct {
	mu        sync.Mutex // Serialises writers (Append, Reset).
	buf       []T        // Writer-owned backing slice, may grow past the published prefix.
	published atomic.Pointer[[]T]
}

// Append adds v to the end of the log and returns its index.
func (l *Log[T]) Append(v T) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	// append either writes past every published length or copies into a new
	// array; in both cases no published slot is touched.
	l.buf = append(l.buf, v)
	view := l.buf[:len(l.buf):len(l.buf)]
	l.published.Store(&view)
	return len(view) - 1
}

// Len returns the number of published elements.
func (l *Log[T]) Len() int {
	if p := l.published.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// At returns the element at index i, or false when i is outside the
// published prefix.
func (l *Log[T]) At(i int) (T, bool) {
	var zero T
	p := l.published.Load()
	if p == nil || i < 0 || i >= len(*p) {
		return zero, false
	}
	return (*p)[i], true
}

// Last returns the n-th element from the end (n=1 is the newest).
func (l *Log[T]) Last(n int) (T, bool) {
	return l.At(l.Len() - n)
}

// Snapshot returns the published prefix. The returned slice is capped at its
// length and must be treated as read-only.
func (l *Log[T]) Snapshot() []T {
	if p := l.published.Load(); p != nil {
		return *p
	}
	return nil
}

// Range calls fn for indices [from, to) of the published prefix, clamping the
// range to what is published at call time. It stops early when fn returns
// false and returns the index after the last element visited.
func (l *Log[T]) Range(from, to int, fn func(i int, v T) bool) int {
	items := l.Snapshot()
	if from < 0 {
		from = 0
	}
	if to > len(items) {
		to = len(items)
	}
	for i := from; i < to; i++ {
		if !fn(i, items[i]) {
			return i + 1
		}
	}
	if from > to {
		return from
	}
	return to
}

// Reset drops every element. Snapshots taken before the reset stay valid.
func (l *Log[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = nil
	empty := []T{}
	l.published.Store(&empty)
}
