// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"math"

	"github.com/gogpu/hwc/layer"
)

// Limits holds the hardware calibration values used by Check and the
// Allocator. They differ per SoC; DefaultLimits returns a conservative set.
type Limits struct {
	// Formats is the set of formats the overlay pipelines can fetch.
	Formats layer.FormatSet

	// MaxDecimation is the worst-case decimation factor per axis the
	// fetch unit can apply before scaling (1 disables decimation).
	MaxDecimation int

	// MaxDownscale is the largest source/destination ratio the scaler
	// handles after decimation.
	MaxDownscale float64

	// MaxUpscale is the largest destination/source ratio.
	MaxUpscale float64

	// MinHeightRatio rejects layers whose destination height is below
	// source height / MinHeightRatio.
	MinHeightRatio int

	// ScalerClockKHz is the scaler fetch clock. Together with the pixel
	// clock of the output it bounds the sustainable horizontal ratio.
	// Zero disables the pixel clock check.
	ScalerClockKHz int

	// SmallSourceWidth is the source width at or below which horizontal
	// ratios are snapped up to the next integer.
	SmallSourceWidth int

	// SlotMemory is the size in bytes of the memory slot shared by all
	// overlay buffers of a frame.
	SlotMemory int

	// MinOutputWidth is the narrowest destination the pipelines accept.
	MinOutputWidth int

	// MaxDecimatedLayers bounds how many layers may need decimation in one
	// frame, normally the number of scaling pipelines.
	MaxDecimatedLayers int

	// HysteresisFrames is how many frames a slot released by the secondary
	// output stays unavailable.
	HysteresisFrames int

	// MaxBlits bounds the blit list of one frame.
	MaxBlits int
}

// DefaultLimits returns limits matching a typical mobile display
// controller with four overlay pipelines.
func DefaultLimits() Limits {
	return Limits{
		Formats: layer.NewFormatSet(
			layer.FormatRGBA8888, layer.FormatRGBX8888,
			layer.FormatBGRA8888, layer.FormatBGRX8888,
			layer.FormatRGB565, layer.FormatYUYV422, layer.FormatNV12,
		),
		MaxDecimation:      4,
		MaxDownscale:       4,
		MaxUpscale:         8,
		MinHeightRatio:     4,
		ScalerClockKHz:     170000,
		SmallSourceWidth:   64,
		SlotMemory:         32 << 20,
		MinOutputWidth:     16,
		MaxDecimatedLayers: 3,
		HysteresisFrames:   1,
		MaxBlits:           256,
	}
}

func ceilDiv(a, b int) int {
	if b <= 1 {
		return a
	}
	return (a + b - 1) / b
}

// horizontalOK reports whether a source of width srcW can be scaled to
// dstW at the given pixel clock.
func (lim *Limits) horizontalOK(srcW, dstW, pixelClockKHz int) bool {
	if dstW <= 0 {
		return false
	}
	maxRatio := lim.MaxDownscale
	if lim.ScalerClockKHz > 0 && pixelClockKHz > 0 {
		maxRatio = math.Min(maxRatio, float64(lim.ScalerClockKHz)/float64(pixelClockKHz))
	}
	ratio := float64(srcW) / float64(dstW)
	if srcW <= lim.SmallSourceWidth {
		ratio = math.Ceil(ratio)
	}
	return ratio <= maxRatio
}

// Sustainable reports whether the scaler can turn a srcW x srcH source
// into a dstW x dstH destination at the given pixel clock, using the
// worst-case decimation. A zero pixel clock skips the clock bound.
func (lim *Limits) Sustainable(srcW, srcH, dstW, dstH, pixelClockKHz int) bool {
	if dstW <= 0 || dstH <= 0 {
		return false
	}
	minW := ceilDiv(srcW, lim.MaxDecimation)
	minH := ceilDiv(srcH, lim.MaxDecimation)
	if float64(minH) > float64(dstH)*lim.MaxDownscale {
		return false
	}
	return lim.horizontalOK(minW, dstW, pixelClockKHz)
}
