// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package layer defines the per-frame data model handed to the planner by
// the window system.
//
// A Layer is created fresh every frame and is read-only to the planner.
// Layers are correlated across frames by their ID, a stable token assigned
// by the window system, never by buffer handle: buffers rotate between
// frames while the logical layer stays the same.
package layer
