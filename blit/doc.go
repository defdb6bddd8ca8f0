// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package blit turns a region partition into 2D blit commands.
//
// Synthesize walks every subregion top to bottom through the layer stack
// until an opaque layer hides the rest, skips subregions that are neither
// damaged nor covered by a dirty layer, and appends clear, copy and blend
// entries to a List. The two bottom layers of a stack are merged into one
// blend when both are unscaled and not planar YUV. Entries are
// asynchronous except the last one of the frame, which fences the rest.
//
// List has a fixed capacity. Entries beyond it are dropped and the list is
// flagged as degraded; it never grows during a frame.
package blit
