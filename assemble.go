// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
)

// OverlayConfig is the programming of one overlay pipeline.
type OverlayConfig struct {
	Slot    int
	Enabled bool
	Output  overlay.Output
	Source  overlay.Source
	// Layer is the identity of the layer shown, or 0 for the fallback
	// plane.
	Layer  layer.ID
	Handle layer.Handle
	// Buffer indexes Submission.Handles, or -1.
	Buffer int

	Format                layer.Format
	Width, Height, Stride int

	// Crop is the source rectangle and Window the destination on the
	// slot's output.
	Crop      image.Rectangle
	Window    image.Rectangle
	Transform geom.Transform

	Z             int
	Premultiplied bool
}

// Submission is everything the display backend and the blit engine need
// for one frame.
type Submission struct {
	Seq uint64
	// Overlays holds one entry per pipeline in slot index order.
	Overlays []OverlayConfig
	// Blits aliases the planner's blit list and is valid until the next
	// Plan.
	Blits []blit.Entry
	// Handles lists every buffer referenced by Overlays and Blits once,
	// in order of first reference.
	Handles []layer.Handle
	// Framebuffer indexes Handles for the fallback framebuffer written
	// this frame, or -1.
	Framebuffer int
	// Damage is the repainted part of the fallback plane.
	Damage image.Rectangle
	// Degraded is set when the slot budget or the blit list capacity
	// forced a reduced configuration.
	Degraded bool
}

// Enabled returns the enabled overlays of out, in slot order.
func (s *Submission) Enabled(out overlay.Output) []OverlayConfig {
	var cfgs []OverlayConfig
	for _, o := range s.Overlays {
		if o.Enabled && o.Output == out {
			cfgs = append(cfgs, o)
		}
	}
	return cfgs
}

// Assemble merges the overlay configuration, the blit entries and the
// buffer list of one frame. A submission violating Validate is logged as
// a defect and returned anyway; backends apply overlays in order, so the
// later of two conflicting entries wins.
func Assemble(seq uint64, overlays []OverlayConfig, blits []blit.Entry, fb *layer.Buffer) *Submission {
	s := &Submission{
		Seq:         seq,
		Overlays:    overlays,
		Blits:       blits,
		Framebuffer: -1,
	}
	index := make(map[layer.Handle]int, len(overlays)+2)
	add := func(h layer.Handle) int {
		if h == 0 {
			return -1
		}
		if i, ok := index[h]; ok {
			return i
		}
		index[h] = len(s.Handles)
		s.Handles = append(s.Handles, h)
		return index[h]
	}

	for i := range s.Overlays {
		o := &s.Overlays[i]
		o.Buffer = -1
		if o.Enabled {
			o.Buffer = add(o.Handle)
		}
	}
	if fb != nil {
		s.Framebuffer = add(fb.Handle)
	}
	for i := range blits {
		e := &blits[i]
		add(e.Dst.Handle)
		add(e.Src1.Handle)
		add(e.Src2.Handle)
	}

	if err := Validate(s); err != nil {
		hlog.Logger().Error("hwc: defect in submission", "seq", seq, "err", err)
	}
	return s
}

// Validate reports enabled overlays sharing a z-order or a slot index.
func Validate(s *Submission) error {
	var errs []error
	zs := make(map[int]int, len(s.Overlays))
	slots := make(map[int]int, len(s.Overlays))
	for i, o := range s.Overlays {
		if !o.Enabled {
			continue
		}
		if j, dup := zs[o.Z]; dup {
			errs = append(errs, fmt.Errorf("%w: z=%d on overlays %d and %d", ErrDuplicateZ, o.Z, j, i))
		} else {
			zs[o.Z] = i
		}
		if j, dup := slots[o.Slot]; dup {
			errs = append(errs, fmt.Errorf("%w: slot %d on overlays %d and %d", ErrDuplicateSlot, o.Slot, j, i))
		} else {
			slots[o.Slot] = i
		}
	}
	return errors.Join(errs...)
}
