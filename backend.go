// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"context"

	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/layer"
)

// DisplayBackend drives the display controller.
type DisplayBackend interface {
	display.ModeSetter

	// Commit programs the overlay pipelines of both outputs and returns
	// once the hardware has accepted the configuration.
	Commit(ctx context.Context, s *Submission) error
}

// BlitEngine executes blit entries into the fallback framebuffer. The
// entries reference buffers by handle; handles lists every buffer they
// touch. Submit returns once the engine has queued the work; the last
// entry is synchronous and fences the rest.
type BlitEngine interface {
	Submit(ctx context.Context, entries []blit.Entry, handles []layer.Handle) error
}

// Frame is one frame from the window system.
type Frame struct {
	// Layers are ordered by the window system; Z decides stacking.
	Layers []layer.Layer
	// GeometryChanged drops all damage history before planning.
	GeometryChanged bool
}
