// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package geom provides the small amount of geometry the composition
// pipeline needs: quarter-turn transforms with horizontal mirroring,
// 2x3 affine matrices, and rectangle helpers built on image.Rectangle.
//
// # Coordinate System
//
// Screen coordinates follow the display convention:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Rotations are clockwise as seen on screen
//
// Rectangles are half-open ([Min, Max)). An empty rectangle is a valid
// "no contribution" value and is never an error.
package geom
