// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package overlay decides which layers go straight to display-overlay
// hardware.
//
// Check is the feasibility test for a single layer against the hardware
// limits: formats, rotation support, the memory slot size and scaling
// ratios at the current pixel clock. It is pure.
//
// Allocator hands the scarce overlay slots to feasible layers, frame by
// frame, across the primary output and an optional mirrored or docked
// secondary output. It remembers which slots the secondary output held so
// that a slot is disabled on one output before another output claims it.
// Layers without a slot are composed into the fallback plane through the
// blit path; the allocator never fails a frame.
package overlay
