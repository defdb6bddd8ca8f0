// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package geom

import (
	"image"
	"slices"
)

// Screen returns the rectangle covering a w x h screen.
func Screen(w, h int) image.Rectangle {
	return image.Rect(0, 0, w, h)
}

// Clip intersects r with bounds. The result is the zero rectangle when
// they do not overlap.
func Clip(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}

// Union grows acc to cover r. Empty rectangles contribute nothing.
func Union(acc, r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return acc
	}
	return acc.Union(r)
}

// Area returns the pixel area of r (0 for empty rectangles).
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// SortedUnique sorts vals ascending and removes duplicates in place.
func SortedUnique(vals []int) []int {
	slices.Sort(vals)
	return slices.Compact(vals)
}
