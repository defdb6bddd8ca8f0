// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blit

// DefaultCapacity is the default bound of a List.
const DefaultCapacity = 256

// List is a capacity-bounded sequence of entries for one frame.
type List struct {
	entries  []Entry
	dropped  int
	finished bool
}

// NewList returns an empty list holding at most capacity entries.
func NewList(capacity int) *List {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &List{entries: make([]Entry, 0, capacity)}
}

// Reset empties the list, keeping its storage.
func (l *List) Reset() {
	l.entries = l.entries[:0]
	l.dropped = 0
	l.finished = false
}

// Append adds e. When the list is full e is dropped, the list becomes
// degraded and Append returns false.
func (l *List) Append(e Entry) bool {
	if len(l.entries) == cap(l.entries) {
		l.dropped++
		return false
	}
	l.entries = append(l.entries, e)
	return true
}

// Finish marks every entry asynchronous except the last one.
func (l *List) Finish() {
	for i := range l.entries {
		l.entries[i].Flags |= FlagAsync
	}
	if n := len(l.entries); n > 0 {
		l.entries[n-1].Flags &^= FlagAsync
	}
	l.finished = true
}

// Entries returns the entries in execution order.
func (l *List) Entries() []Entry { return l.entries }

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// Cap returns the capacity.
func (l *List) Cap() int { return cap(l.entries) }

// Degraded reports whether entries were dropped.
func (l *List) Degraded() bool { return l.dropped > 0 }

// Dropped returns the number of dropped entries.
func (l *List) Dropped() int { return l.dropped }

// Finished reports whether Finish was called since the last Reset.
func (l *List) Finished() bool { return l.finished }
