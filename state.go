// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/damage"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
)

// CompositorState is the cross-frame state of one display pipeline.
//
// Tracker, Allocator and Blits belong to the goroutine calling Plan and
// Submit. Display is shared with the event goroutine and guarded by the
// Planner's mutex.
type CompositorState struct {
	Tracker   *damage.Tracker
	Allocator *overlay.Allocator
	Display   *display.Manager
	Blits     *blit.List

	// Frame counts submitted frames.
	Frame uint64

	Framebuffers []layer.Buffer
	fb           int
}

func newCompositorState(cfg *config) *CompositorState {
	depth := len(cfg.framebuffers)
	if depth == 0 {
		depth = damage.DefaultDepth
	}
	return &CompositorState{
		Tracker:   damage.NewTracker(depth),
		Allocator: overlay.NewAllocator(cfg.slots, cfg.limits),
		Display: display.NewManager(display.Config{
			Limits:               cfg.limits,
			Screen:               screenRect(cfg.width, cfg.height),
			SourceRefreshMilliHz: cfg.sourceRefresh,
			Memory:               cfg.memory,
		}),
		Blits:        blit.NewList(cfg.limits.MaxBlits),
		Framebuffers: cfg.framebuffers,
	}
}

// Framebuffer returns the framebuffer the next frame composes into, or nil
// without a framebuffer ring.
func (s *CompositorState) Framebuffer() *layer.Buffer {
	if len(s.Framebuffers) == 0 {
		return nil
	}
	return &s.Framebuffers[s.fb]
}

// FramebufferIndex returns the ring position of Framebuffer.
func (s *CompositorState) FramebufferIndex() int { return s.fb }

// advance records a submitted frame. The ring moves on only when the
// framebuffer was written.
func (s *CompositorState) advance(wroteFramebuffer bool) {
	s.Frame++
	if wroteFramebuffer && len(s.Framebuffers) > 0 {
		s.fb = (s.fb + 1) % len(s.Framebuffers)
	}
}

// Reset drops damage history, slot ownership and the blit list. The
// display session is kept.
func (s *CompositorState) Reset() {
	s.Tracker.Reset()
	s.Allocator.Reset()
	s.Blits.Reset()
	s.fb = 0
}
