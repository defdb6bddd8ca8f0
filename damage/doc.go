// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package damage tracks which parts of the fallback framebuffer must be
// repainted.
//
// A Tracker keeps two snapshots of the layers composed by the blit path:
// the last submitted one and the last planned one. Each Update diffs the
// incoming layers against both by layer identity and returns the damaged
// bounding rectangle together with a dirty count per layer. A dirty count
// starts at the pipeline depth, the number of framebuffers that must see a
// change before it is on every buffer, and counts down while the layer
// stays unchanged.
package damage
