// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package region partitions the screen into non-overlapping paint regions.
//
// Partition cuts the screen into horizontal bands at every top and bottom
// edge of the layers and of the damaged rectangle, then cuts each band
// into subregions at the left and right edges of the layers crossing it.
// Inside a subregion every layer either covers it completely or not at
// all, so a subregion can be painted with a fixed stack of layers.
//
// Boundary lists are sorted ascending and deduplicated; later stages
// address layers by their index in the input slice.
package region
