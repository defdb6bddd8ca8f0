// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package damage

import (
	"image"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/layer"
)

// DefaultDepth is the pipeline depth of a double-buffered fallback plane.
const DefaultDepth = 2

// Entry is the retained state of one layer.
type Entry struct {
	ID        layer.ID
	Handle    layer.Handle
	Crop      image.Rectangle
	Frame     image.Rectangle
	Transform geom.Transform

	DirtyCount int
}

func entryOf(l *layer.Layer) Entry {
	return Entry{
		ID:        l.ID,
		Handle:    l.Handle(),
		Crop:      l.Crop,
		Frame:     l.Frame,
		Transform: l.Transform,
	}
}

func (e *Entry) contentEqual(o *Entry) bool {
	return e.Handle == o.Handle && e.Crop == o.Crop && e.Transform == o.Transform
}

// Snapshot is the retained layer list of one frame. Entry 0 is the
// synthetic background covering the screen.
type Snapshot struct {
	Width, Height int
	Entries       []Entry

	index map[layer.ID]int
}

func newSnapshot(w, h, n int) Snapshot {
	return Snapshot{
		Width:   w,
		Height:  h,
		Entries: make([]Entry, 0, n+1),
		index:   make(map[layer.ID]int, n+1),
	}
}

func (s *Snapshot) add(e Entry) {
	if _, dup := s.index[e.ID]; !dup {
		s.index[e.ID] = len(s.Entries)
	}
	s.Entries = append(s.Entries, e)
}

// Lookup returns the entry with the given identity.
func (s *Snapshot) Lookup(id layer.ID) (Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

func (s *Snapshot) resized(w, h int) bool {
	return len(s.Entries) > 0 && (s.Width != w || s.Height != h)
}

// Len returns the number of entries including the background.
func (s *Snapshot) Len() int { return len(s.Entries) }

// Result is the outcome of one Update.
type Result struct {
	// Damage is the bounding rectangle to repaint, clipped to the screen.
	Damage image.Rectangle
	// Counts holds the dirty count of the background at index 0 followed
	// by one count per layer passed to Update.
	Counts []int
	// Reset is set when the history was dropped before this update.
	Reset bool
}

// Tracker owns the retained snapshots. It is not safe for concurrent use.
type Tracker struct {
	depth int

	current Snapshot
	target  Snapshot
	history []image.Rectangle

	pendingReset bool
}

// NewTracker returns a tracker for the given pipeline depth. A depth
// below 1 selects DefaultDepth.
func NewTracker(depth int) *Tracker {
	if depth < 1 {
		depth = DefaultDepth
	}
	t := &Tracker{depth: depth}
	t.Reset()
	return t
}

// Depth returns the pipeline depth.
func (t *Tracker) Depth() int { return t.depth }

// Reset drops all history; the next Update damages the whole screen.
func (t *Tracker) Reset() {
	t.current = newSnapshot(0, 0, 0)
	t.target = newSnapshot(0, 0, 0)
	t.history = t.history[:0]
	t.pendingReset = true
}

// Current returns the last submitted snapshot.
func (t *Tracker) Current() *Snapshot { return &t.current }

// Target returns the last planned snapshot.
func (t *Tracker) Target() *Snapshot { return &t.target }

// Update diffs layers, bottom to top, against the retained snapshots for a
// w x h screen and makes them the planned snapshot. A screen size change
// resets the history first.
func (t *Tracker) Update(layers []layer.Layer, w, h int) Result {
	if t.target.resized(w, h) || t.current.resized(w, h) {
		t.Reset()
	}
	res := Result{Reset: t.pendingReset, Counts: make([]int, 0, len(layers)+1)}
	t.pendingReset = false

	screen := geom.Screen(w, h)
	next := newSnapshot(w, h, len(layers))
	var dmg image.Rectangle

	visit := func(e Entry) {
		prev, found := t.current.Lookup(e.ID)
		switch {
		case !found, !e.contentEqual(&prev):
			e.DirtyCount = t.depth
			dmg = geom.Union(dmg, e.Frame)
		default:
			e.DirtyCount = max(prev.DirtyCount-1, 0)
		}
		if planned, ok := t.target.Lookup(e.ID); ok && planned.Frame != e.Frame {
			dmg = geom.Union(dmg, planned.Frame)
			dmg = geom.Union(dmg, e.Frame)
			e.DirtyCount = t.depth
		}
		next.add(e)
		res.Counts = append(res.Counts, e.DirtyCount)
	}

	visit(Entry{ID: layer.BackgroundID, Frame: screen})
	for i := range layers {
		visit(entryOf(&layers[i]))
	}
	for _, e := range t.target.Entries {
		if _, ok := next.index[e.ID]; !ok {
			dmg = geom.Union(dmg, e.Frame)
		}
	}

	fresh := geom.Clip(dmg, screen)
	res.Damage = fresh
	for _, r := range t.history {
		res.Damage = geom.Union(res.Damage, r)
	}
	// Older framebuffers still miss the damage of the last depth-1 frames.
	if t.depth > 1 {
		t.history = append(t.history, fresh)
		if len(t.history) > t.depth-1 {
			t.history = t.history[len(t.history)-(t.depth-1):]
		}
	}

	t.target = next
	return res
}

// Commit records the planned snapshot as submitted.
func (t *Tracker) Commit() {
	t.current = t.target
}
