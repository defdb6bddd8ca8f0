// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"strings"

	"github.com/gogpu/hwc/layer"
)

// Reason is a bit set of causes that make a layer ineligible for an overlay.
type Reason uint16

// Ineligibility reasons.
const (
	ReasonSkip Reason = 1 << iota
	ReasonNoBuffer
	ReasonFormat
	ReasonRotation
	ReasonMemory
	ReasonEmpty
	ReasonOutputWidth
	ReasonMinHeight
	ReasonDownscale
	ReasonUpscale
	ReasonPixelClock
)

var reasonNames = []string{
	"skip", "no-buffer", "format", "rotation", "memory", "empty",
	"output-width", "min-height", "downscale", "upscale", "pixel-clock",
}

// String lists the reasons separated by "|".
func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for i, name := range reasonNames {
		if r&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Verdict is the result of Check.
type Verdict struct {
	Eligible bool
	Reasons  Reason

	// Scaled is set when the oriented crop and the frame differ in size.
	Scaled bool
	// NeedsDecimation is set when the scaler alone cannot reach the
	// destination size.
	NeedsDecimation bool
	// Memory is the buffer footprint counted against Limits.SlotMemory.
	Memory int
}

// Check evaluates whether l can be shown on an overlay. pixelClockKHz is
// the pixel clock of the output the layer is shown on, or 0 if unknown.
//
// Check is pure: identical inputs always yield the identical verdict.
func Check(l *layer.Layer, lim *Limits, pixelClockKHz int) Verdict {
	var v Verdict
	if l.Flags.Has(layer.FlagSkip) {
		v.Reasons |= ReasonSkip
	}
	if l.Buffer == nil || l.Buffer.Handle == 0 {
		v.Reasons |= ReasonNoBuffer
		return v
	}

	f := l.Buffer.Format
	if !lim.Formats.Has(f) {
		v.Reasons |= ReasonFormat
	}
	v.Memory = f.Bytes(l.Buffer.Width, l.Buffer.Height)
	if !f.IsPlanarYUV() {
		if l.Transform.Rotation != 0 {
			v.Reasons |= ReasonRotation
		}
		if v.Memory > lim.SlotMemory {
			v.Reasons |= ReasonMemory
		}
	}

	srcW, srcH := l.SourceSize()
	dstW, dstH := l.Frame.Dx(), l.Frame.Dy()
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		v.Reasons |= ReasonEmpty
		return v
	}
	v.Scaled = l.Scaled()
	v.NeedsDecimation = float64(srcW) > float64(dstW)*lim.MaxDownscale ||
		float64(srcH) > float64(dstH)*lim.MaxDownscale

	if dstW < lim.MinOutputWidth {
		v.Reasons |= ReasonOutputWidth
	}
	if lim.MinHeightRatio > 0 && dstH*lim.MinHeightRatio < srcH {
		v.Reasons |= ReasonMinHeight
	}
	minW := ceilDiv(srcW, lim.MaxDecimation)
	minH := ceilDiv(srcH, lim.MaxDecimation)
	switch {
	case float64(minH) > float64(dstH)*lim.MaxDownscale || !lim.horizontalOK(minW, dstW, 0):
		v.Reasons |= ReasonDownscale
	case pixelClockKHz > 0 && !lim.horizontalOK(minW, dstW, pixelClockKHz):
		v.Reasons |= ReasonPixelClock
	}
	if float64(dstW) > float64(srcW)*lim.MaxUpscale || float64(dstH) > float64(srcH)*lim.MaxUpscale {
		v.Reasons |= ReasonUpscale
	}

	v.Eligible = v.Reasons == 0
	return v
}

// CheckAll runs Check over layers and returns the verdicts in order.
func CheckAll(layers []layer.Layer, lim *Limits, pixelClockKHz int) []Verdict {
	out := make([]Verdict, len(layers))
	for i := range layers {
		out[i] = Check(&layers[i], lim, pixelClockKHz)
	}
	return out
}
