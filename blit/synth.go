// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blit

import (
	"image"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/region"
)

// Source is one entry of the blit layer list.
type Source struct {
	// Layer is the layer to compose. It is nil for the background.
	Layer *layer.Layer
	// Clear marks the background and layers whose area is filled with
	// Color instead of being read. Clear sources hide what lies beneath.
	Clear bool
	// Color fills a Clear source; the zero value is transparent black.
	Color gputypes.Color
	// Dirty is the dirty count from the damage tracker.
	Dirty int
}

func (s *Source) opaque() bool {
	return s.Clear || s.Layer.Opaque()
}

// wholeFrame reports whether the source is mapped onto its whole frame and
// clipped to the subregion, instead of being cut per subregion.
func (s *Source) wholeFrame() bool {
	if s.Clear {
		return false
	}
	return s.Layer.Scaled() || s.Layer.Format().IsPlanarYUV()
}

func (s *Source) mergeable() bool {
	return !s.Clear && !s.wholeFrame()
}

// Input is everything Synthesize needs for one frame.
type Input struct {
	// Map is the partition of the screen. Its per-layer rectangles are
	// index-aligned with Sources.
	Map *region.Map
	// Sources is ordered bottom to top; index 0 is the background.
	Sources []Source
	// Damage is the damaged rectangle of the frame.
	Damage image.Rectangle
	// Target is the framebuffer written by every entry.
	Target Surface
}

// Stats summarises one Synthesize call.
type Stats struct {
	Subregions int
	Skipped    int
	Entries    int
	Merged     int
	Pixels     int
}

// Synthesize appends the entries of one frame to list and marks the last
// one synchronous. Subregions are visited in band order, left to right.
func Synthesize(in *Input, list *List) Stats {
	var st Stats
	if in.Map == nil {
		list.Finish()
		return st
	}
	stack := make([]int, 0, len(in.Sources))
	in.Map.Each(func(b *region.Band, s *region.Subregion) bool {
		st.Subregions++
		sub := b.Rect(s)

		// Top to bottom until an opaque source hides the rest.
		stack = stack[:0]
		for k := min(len(s.Rects), len(in.Sources)) - 1; k >= 0; k-- {
			if s.Rects[k].Empty() {
				continue
			}
			stack = append(stack, k)
			if in.Sources[k].opaque() {
				break
			}
		}
		if len(stack) == 0 || !in.needsPaint(sub, stack) {
			st.Skipped++
			return true
		}
		slices.Reverse(stack)
		c := chain{in: in, list: list, sub: sub, stats: &st, prev: -1}
		c.emit(stack)
		return true
	})
	list.Finish()
	return st
}

func (in *Input) needsPaint(sub image.Rectangle, stack []int) bool {
	if sub.Overlaps(in.Damage) {
		return true
	}
	for _, k := range stack {
		if in.Sources[k].Dirty > 0 {
			return true
		}
	}
	return false
}

// chain emits the entries of one subregion.
type chain struct {
	in    *Input
	list  *List
	sub   image.Rectangle
	stats *Stats

	n    int
	prev int
}

// emit composes srcs, ordered bottom to top.
func (c *chain) emit(srcs []int) {
	var i int
	base := -1
	if c.in.Sources[srcs[0]].Clear {
		i = 1
		// A translucent premultiplied layer over a transparent clear is
		// its own copy; coverage blending needs the clear first.
		if len(srcs) == 1 || c.in.Sources[srcs[0]].Color.A != 0 ||
			c.in.Sources[srcs[1]].Layer.Blend == layer.BlendCoverage {
			c.clear(srcs[0])
		} else {
			base, i = srcs[1], 2
		}
	} else {
		base, i = srcs[0], 1
	}

	if base >= 0 {
		if i < len(srcs) && c.in.Sources[base].mergeable() && c.in.Sources[srcs[i]].mergeable() {
			c.merged(srcs[i], base)
			i++
		} else {
			c.layer(OpCopy, base)
		}
	}
	for ; i < len(srcs); i++ {
		c.layer(OpBlend, srcs[i])
	}
}

func (c *chain) push(e Entry, k int) {
	if c.n > 0 {
		e.Flags |= FlagBatch | FlagBatchSrc1Rect
		cur := k >= 0 && c.in.Sources[k].wholeFrame()
		prev := c.prev >= 0 && c.in.Sources[c.prev].wholeFrame()
		if cur || prev {
			e.Flags |= FlagBatchDstRect | FlagBatchClip
		}
	}
	e.Dst = c.in.Target
	if c.list.Append(e) {
		c.stats.Entries++
		c.stats.Pixels += e.Area()
		if e.Merged() {
			c.stats.Merged++
		}
	}
	c.n++
	c.prev = k
}

func (c *chain) clear(k int) {
	c.push(Entry{
		Op:      OpClear,
		DstRect: c.sub,
		Clip:    c.sub,
		Color:   c.in.Sources[k].Color,
		Layers:  [2]int{-1, -1},
	}, -1)
}

// geometry returns the source and destination mapping of layer l for the
// current subregion.
func (c *chain) geometry(s *Source) (src, dst image.Rectangle, srcT, dstT geom.Transform) {
	l := s.Layer
	if s.wholeFrame() {
		src, dst = l.Crop, l.Frame
	} else {
		src, dst = l.SourceRect(c.sub), c.sub
	}
	if l.Format().IsPlanarYUV() {
		// Planar YUV cannot be fetched rotated; rotate the destination.
		return src, dst, geom.Transform{}, l.Transform
	}
	return src, dst, l.Transform, geom.Transform{}
}

func (c *chain) layer(op Op, k int) {
	s := &c.in.Sources[k]
	src, dst, srcT, dstT := c.geometry(s)
	c.push(Entry{
		Op:            op,
		DstRect:       dst,
		Clip:          c.sub,
		DstTransform:  dstT,
		Src1:          SurfaceOf(s.Layer.Buffer),
		Src1Rect:      src,
		Src1Transform: srcT,
		Blend:         s.Layer.Blend,
		Layers:        [2]int{k, -1},
	}, k)
}

func (c *chain) merged(top, bottom int) {
	t := &c.in.Sources[top]
	b := &c.in.Sources[bottom]
	c.push(Entry{
		Op:            OpBlend,
		DstRect:       c.sub,
		Clip:          c.sub,
		Src1:          SurfaceOf(t.Layer.Buffer),
		Src1Rect:      t.Layer.SourceRect(c.sub),
		Src1Transform: t.Layer.Transform,
		Blend:         t.Layer.Blend,
		Src2:          SurfaceOf(b.Layer.Buffer),
		Src2Rect:      b.Layer.SourceRect(c.sub),
		Src2Transform: b.Layer.Transform,
		Layers:        [2]int{top, bottom},
	}, top)
}
