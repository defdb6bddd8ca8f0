// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"image"
	"math"

	"github.com/gogpu/hwc/geom"
)

// snapTolerance is the relative difference below which a target edge is
// stretched to the full mode edge.
const snapTolerance = 0.02

// TargetBox returns the largest box with the aspect ratio of a sw x sh
// source that fits mode m, centred in the mode. Non-square pixels of the
// mode are taken into account. An edge within 2% of the mode edge is
// snapped to it.
func TargetBox(sw, sh int, m Mode) image.Rectangle {
	if sw <= 0 || sh <= 0 || !m.Valid() {
		return image.Rectangle{}
	}
	// Source width expressed in mode pixels.
	srcW := float64(sw) / m.PixelAspect()
	srcH := float64(sh)
	scale := math.Min(float64(m.Width)/srcW, float64(m.Height)/srcH)

	tw := snap(int(math.Round(srcW*scale)), m.Width)
	th := snap(int(math.Round(srcH*scale)), m.Height)
	x := (m.Width - tw) / 2
	y := (m.Height - th) / 2
	return image.Rect(x, y, x+tw, y+th)
}

func snap(v, edge int) int {
	if v > edge || math.Abs(float64(edge-v)) <= snapTolerance*float64(edge) {
		return edge
	}
	return v
}

// BuildTransform returns the matrix mapping the src box of the primary
// screen onto box on the secondary screen: translate src to the origin,
// rotate clockwise, mirror, scale to the box and translate to the box
// centre.
func BuildTransform(src image.Rectangle, t geom.Transform, box image.Rectangle) geom.Matrix {
	return geom.Fit(src, box, t)
}
