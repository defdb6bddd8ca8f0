// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package region

import (
	"image"

	"github.com/gogpu/hwc/geom"
)

// Subregion is a horizontal span of a Band.
type Subregion struct {
	Left, Right int
	// Rects holds, per input layer, the part of the layer inside the
	// subregion: either the whole subregion or an empty rectangle.
	Rects []image.Rectangle
}

// Band is a horizontal strip of the screen.
type Band struct {
	Top, Bottom int
	Subregions  []Subregion
}

// Rect returns the screen rectangle of s within b.
func (b *Band) Rect(s *Subregion) image.Rectangle {
	return image.Rect(s.Left, b.Top, s.Right, b.Bottom)
}

// Map is the partition of one screen.
type Map struct {
	Width, Height int
	Layers        int
	Bands         []Band
}

// Subregions returns the total number of subregions.
func (m *Map) Subregions() int {
	n := 0
	for i := range m.Bands {
		n += len(m.Bands[i].Subregions)
	}
	return n
}

// Each calls fn for every subregion in band order, then left to right.
// It stops when fn returns false.
func (m *Map) Each(fn func(b *Band, s *Subregion) bool) {
	for i := range m.Bands {
		b := &m.Bands[i]
		for j := range b.Subregions {
			if !fn(b, &b.Subregions[j]) {
				return
			}
		}
	}
}

// Partition splits a w x h screen using the layer rectangles rects and
// the damaged rectangle. Rects are in screen coordinates; empty ones take
// no part in the partition.
func Partition(rects []image.Rectangle, damage image.Rectangle, w, h int) Map {
	m := Map{Width: w, Height: h, Layers: len(rects)}
	if w <= 0 || h <= 0 {
		return m
	}
	screen := geom.Screen(w, h)

	clipped := make([]image.Rectangle, len(rects))
	ys := make([]int, 0, 2*len(rects)+4)
	ys = append(ys, 0, h)
	for i, r := range rects {
		clipped[i] = geom.Clip(r, screen)
		if !clipped[i].Empty() {
			ys = append(ys, clipped[i].Min.Y, clipped[i].Max.Y)
		}
	}
	if d := geom.Clip(damage, screen); !d.Empty() {
		ys = append(ys, d.Min.Y, d.Max.Y)
	}
	ys = geom.SortedUnique(ys)

	m.Bands = make([]Band, 0, len(ys)-1)
	xs := make([]int, 0, 2*len(rects)+2)
	for i := 0; i+1 < len(ys); i++ {
		top, bottom := ys[i], ys[i+1]
		xs = append(xs[:0], 0, w)
		for _, r := range clipped {
			if r.Min.Y < bottom && r.Max.Y > top && !r.Empty() {
				xs = append(xs, r.Min.X, r.Max.X)
			}
		}
		xs = geom.SortedUnique(xs)

		band := Band{Top: top, Bottom: bottom, Subregions: make([]Subregion, len(xs)-1)}
		// One backing array per band for the per-layer rectangles.
		backing := make([]image.Rectangle, len(rects)*(len(xs)-1))
		for j := range band.Subregions {
			s := &band.Subregions[j]
			s.Left, s.Right = xs[j], xs[j+1]
			s.Rects = backing[j*len(rects) : (j+1)*len(rects) : (j+1)*len(rects)]
			sub := band.Rect(s)
			for k, r := range clipped {
				s.Rects[k] = r.Intersect(sub)
			}
		}
		m.Bands = append(m.Bands, band)
	}
	return m
}
