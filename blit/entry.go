// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blit

import (
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/layer"
)

// Op is the operation of an Entry.
type Op uint8

// Blit operations.
const (
	// OpClear fills the clip with Color.
	OpClear Op = iota
	// OpCopy replaces the destination with Src1.
	OpCopy
	// OpBlend composes Src1 over Src2, or over the destination when Src2
	// is unset.
	OpBlend
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpCopy:
		return "copy"
	case OpBlend:
		return "blend"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Flags modify how an Entry is executed.
type Flags uint8

// Entry flags.
const (
	// FlagAsync lets the engine return before the entry completes.
	FlagAsync Flags = 1 << iota
	// FlagBatch marks an entry continuing the chain of the previous one.
	FlagBatch
	// FlagBatchSrc1Rect is set on a continuation whose Src1Rect changed.
	FlagBatchSrc1Rect
	// FlagBatchDstRect is set on a continuation whose DstRect changed.
	FlagBatchDstRect
	// FlagBatchClip is set on a continuation whose Clip changed.
	FlagBatchClip
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String lists the set flags.
func (f Flags) String() string {
	names := []string{"async", "batch", "src1", "dst", "clip"}
	var parts []string
	for i, n := range names {
		if f&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "sync"
	}
	return strings.Join(parts, "|")
}

// Surface is a buffer read or written by an Entry.
type Surface struct {
	Handle        layer.Handle
	Format        layer.Format
	Width, Height int
}

// SurfaceOf returns the surface of a layer buffer.
func SurfaceOf(b *layer.Buffer) Surface {
	if b == nil {
		return Surface{}
	}
	return Surface{Handle: b.Handle, Format: b.Format, Width: b.Width, Height: b.Height}
}

// Valid reports whether s refers to a buffer.
func (s Surface) Valid() bool { return s.Handle != 0 }

// Entry is one blit command.
//
// Src1Rect is mapped onto DstRect through Src1Transform then DstTransform
// and the result is limited to Clip. For scaled and planar YUV sources
// DstRect is the whole layer frame and Clip the subregion, so every
// subregion samples the source with the same mapping.
type Entry struct {
	Op    Op
	Flags Flags

	Dst     Surface
	DstRect image.Rectangle
	Clip    image.Rectangle
	// DstTransform orients the destination; used for planar YUV sources,
	// which are fetched unrotated.
	DstTransform geom.Transform

	Src1          Surface
	Src1Rect      image.Rectangle
	Src1Transform geom.Transform
	// Blend is how Src1 combines with what lies beneath.
	Blend layer.Blend

	// Src2 is the bottom layer of a merged blend. It is unscaled and
	// unrotated relative to DstRect.
	Src2          Surface
	Src2Rect      image.Rectangle
	Src2Transform geom.Transform

	// Color is the fill of OpClear.
	Color gputypes.Color

	// Layers holds the source indices of Src1 and Src2, or -1.
	Layers [2]int
}

// Async reports whether the entry may complete after Submit returns.
func (e *Entry) Async() bool { return e.Flags.Has(FlagAsync) }

// Merged reports whether the entry composes two layers at once.
func (e *Entry) Merged() bool { return e.Op == OpBlend && e.Src2.Valid() }

// Area returns the number of destination pixels written.
func (e *Entry) Area() int {
	if e.Op == OpClear {
		return geom.Area(e.Clip)
	}
	return geom.Area(e.DstRect.Intersect(e.Clip))
}

// String returns a short description for logs.
func (e *Entry) String() string {
	switch e.Op {
	case OpClear:
		return fmt.Sprintf("clear %v [%v]", e.Clip, e.Flags)
	case OpCopy:
		return fmt.Sprintf("copy #%d %v->%v clip %v [%v]", e.Src1.Handle, e.Src1Rect, e.DstRect, e.Clip, e.Flags)
	default:
		if e.Merged() {
			return fmt.Sprintf("blend #%d over #%d ->%v clip %v [%v]", e.Src1.Handle, e.Src2.Handle, e.DstRect, e.Clip, e.Flags)
		}
		return fmt.Sprintf("blend #%d %v->%v clip %v [%v]", e.Src1.Handle, e.Src1Rect, e.DstRect, e.Clip, e.Flags)
	}
}
