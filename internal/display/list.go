// SPDX-License-Identifier: MIT
package display

import "musicpainter/pkg/appendlog"

// List is the ordered display list of one session. Insertion order is draw
// order. The session is the only writer; any number of viewers may read a
// published prefix concurrently without locking.
type List struct {
	log appendlog.Log[Primitive]
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Add appends p and returns its index.
func (l *List) Add(p Primitive) int {
	return l.log.Append(p)
}

// Len returns the number of published primitives.
func (l *List) Len() int {
	return l.log.Len()
}

// At returns the primitive at index i.
func (l *List) At(i int) (Primitive, bool) {
	return l.log.At(i)
}

// Snapshot returns the published prefix. The slice must not be modified.
func (l *List) Snapshot() []Primitive {
	return l.log.Snapshot()
}

// Range visits [from, to) of the published prefix and returns the index
// after the last primitive visited.
func (l *List) Range(from, to int, fn func(i int, p Primitive) bool) int {
	return l.log.Range(from, to, fn)
}

// Reset empties the list. Viewers holding a snapshot keep it.
func (l *List) Reset() {
	l.log.Reset()
}

// Count returns how many primitives of kind k are published.
func (l *List) Count(k Kind) int {
	n := 0
	for _, p := range l.Snapshot() {
		if p.Kind() == k {
			n++
		}
	}
	return n
}
