// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/geom"
)

// ID identifies the same logical layer across frames.
// BackgroundID is reserved for the planner's synthetic background.
type ID uint32

// BackgroundID is the identity of the synthetic background layer.
const BackgroundID ID = 0

// Handle is an opaque buffer reference. Zero means "no buffer".
type Handle uint64

// Buffer describes the memory behind a layer.
type Buffer struct {
	Handle Handle
	Width  int
	Height int
	Stride int
	Format Format
}

// Bounds returns the full buffer rectangle.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Blend selects how a layer combines with what is beneath it.
type Blend uint8

// Blend modes.
const (
	// BlendNone marks the layer opaque.
	BlendNone Blend = iota
	// BlendPremultiplied blends with color channels premultiplied by alpha.
	BlendPremultiplied
	// BlendCoverage blends with straight (non-premultiplied) alpha.
	BlendCoverage
)

// String returns the blend name.
func (b Blend) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendPremultiplied:
		return "premultiplied"
	case BlendCoverage:
		return "coverage"
	}
	return fmt.Sprintf("Blend(%d)", uint8(b))
}

// ParseBlend returns the blend mode named name. The empty string is
// BlendNone.
func ParseBlend(name string) (Blend, bool) {
	switch name {
	case "", "none":
		return BlendNone, true
	case "premultiplied":
		return BlendPremultiplied, true
	case "coverage":
		return BlendCoverage, true
	}
	return BlendNone, false
}

// GPUBlend returns the blend state a GPU fallback renderer uses for b.
func (b Blend) GPUBlend() gputypes.BlendState {
	switch b {
	case BlendPremultiplied:
		return gputypes.BlendStatePremultiplied()
	case BlendCoverage:
		return gputypes.BlendStateAlpha()
	default:
		return gputypes.BlendStateReplace()
	}
}

// Flags carries per-layer hints from the window system.
type Flags uint8

// Layer flags.
const (
	// FlagProtected marks secure content that must not be read back.
	FlagProtected Flags = 1 << iota
	// FlagClearBeneath asks for the framebuffer beneath the layer to be
	// cleared, so a plane underneath shows through.
	FlagClearBeneath
	// FlagSkip asks the planner to leave the layer to the fallback path.
	FlagSkip
	// FlagDockable marks the layer that is shown exclusively on the
	// secondary output while docked.
	FlagDockable
)

// Has reports whether all bits in f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Layer is one visual layer submitted for a frame.
type Layer struct {
	ID     ID
	Buffer *Buffer

	// Crop is the source rectangle in buffer coordinates.
	Crop image.Rectangle
	// Frame is the destination rectangle in screen coordinates.
	Frame image.Rectangle

	Transform geom.Transform
	Blend     Blend
	Z         int
	Flags     Flags
}

// Format returns the buffer format, or FormatUnknown without a buffer.
func (l *Layer) Format() Format {
	if l.Buffer == nil {
		return FormatUnknown
	}
	return l.Buffer.Format
}

// Handle returns the buffer handle, or 0 without a buffer.
func (l *Layer) Handle() Handle {
	if l.Buffer == nil {
		return 0
	}
	return l.Buffer.Handle
}

// Opaque reports whether the layer fully hides what lies beneath it.
func (l *Layer) Opaque() bool {
	return l.Blend == BlendNone
}

// SourceSize returns the crop size as seen after the layer transform,
// i.e. with width and height exchanged for quarter-turn rotations.
func (l *Layer) SourceSize() (w, h int) {
	w, h = l.Crop.Dx(), l.Crop.Dy()
	if l.Transform.SwapsAxes() {
		w, h = h, w
	}
	return w, h
}

// Scaled reports whether the oriented crop differs in size from the frame.
func (l *Layer) Scaled() bool {
	w, h := l.SourceSize()
	return w != l.Frame.Dx() || h != l.Frame.Dy()
}

// ScaleDeviation returns how far the layer's scale factor strays from 1:1,
// as the larger of the per-axis deviations. Zero means unscaled.
func (l *Layer) ScaleDeviation() float64 {
	w, h := l.SourceSize()
	if w == 0 || h == 0 {
		return 0
	}
	dev := func(dst, src int) float64 {
		r := float64(dst) / float64(src)
		if r < 1 {
			return 1/r - 1
		}
		return r - 1
	}
	return max(dev(l.Frame.Dx(), w), dev(l.Frame.Dy(), h))
}

// Matrix returns the mapping from crop coordinates to screen coordinates.
func (l *Layer) Matrix() geom.Matrix {
	return geom.Fit(l.Crop, l.Frame, l.Transform)
}

// SourceRect maps a destination rectangle (a part of Frame) back into the
// crop. The result is clipped to the crop.
func (l *Layer) SourceRect(dst image.Rectangle) image.Rectangle {
	if dst.Empty() {
		return image.Rectangle{}
	}
	return l.Matrix().Invert().MapRect(dst).Intersect(l.Crop)
}

// ContentEqual reports whether l and o show the same pixels: same buffer,
// same crop and same orientation. Position on screen is not compared.
func (l *Layer) ContentEqual(o *Layer) bool {
	return l.Handle() == o.Handle() && l.Crop == o.Crop && l.Transform == o.Transform
}

// String returns a short description for logs.
func (l *Layer) String() string {
	return fmt.Sprintf("layer#%d z=%d %v %v->%v %v", l.ID, l.Z, l.Format(), l.Crop, l.Frame, l.Transform)
}
