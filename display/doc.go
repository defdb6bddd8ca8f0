// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package display drives the secondary output when the primary output is
// mirrored or a dockable layer is shown on an external screen.
//
// SelectMode picks the timing of the external screen by comparing Score
// values field by field. TargetBox and BuildTransform produce the 2x3
// affine mapping from primary-screen coordinates to the secondary screen.
// Manager keeps the per-session state: requested clone mode, negotiated
// mode, mapping, and the session-disable flag set after a failed
// negotiation.
package display
