// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"image"
	"slices"
	"testing"

	"github.com/gogpu/hwc/layer"
)

// =============================================================================
// Helpers
// =============================================================================

func rgba(id layer.ID, z int, frame image.Rectangle) layer.Layer {
	l := testLayer(id, layer.FormatRGBA8888, image.Rect(0, 0, frame.Dx(), frame.Dy()), frame)
	l.Z = z
	return l
}

func translucent(l layer.Layer) layer.Layer {
	l.Blend = layer.BlendPremultiplied
	return l
}

func withFormat(l layer.Layer, f layer.Format) layer.Layer {
	b := *l.Buffer
	b.Format = f
	l.Buffer = &b
	return l
}

func request(lim *Limits, layers ...layer.Layer) Request {
	return Request{
		Layers:           layers,
		Verdicts:         CheckAll(layers, lim, 0),
		SecondaryFormats: layer.NewFormatSet(layer.FormatRGBA8888, layer.FormatBGRA8888),
		FallbackFormat:   layer.FormatRGBA8888,
	}
}

func checkDistinctZ(t *testing.T, d *Decision) {
	t.Helper()
	seen := map[int]int{}
	for _, s := range d.Slots {
		if !s.Enabled {
			continue
		}
		if prev, ok := seen[s.Z]; ok {
			t.Errorf("slots %d and %d share z=%d", prev, s.Index, s.Z)
		}
		seen[s.Z] = s.Index
	}
}

// =============================================================================
// Single output
// =============================================================================

func TestAllocateAllFit(t *testing.T) {
	lim := DefaultLimits()
	a := NewAllocator(nil, lim)
	if a.Phase() != PhaseIdle {
		t.Fatalf("Phase = %v, want idle", a.Phase())
	}

	req := request(&lim,
		translucent(rgba(1, 0, image.Rect(0, 0, 200, 200))),
		rgba(2, 1, image.Rect(100, 100, 300, 300)),
	)
	d := a.Allocate(req)

	if !d.CanRenderAll || d.UsesFallback() {
		t.Fatalf("CanRenderAll=%v fallback=%v, want all overlays", d.CanRenderAll, d.UsesFallback())
	}
	if d.OverlayCount() != 2 {
		t.Errorf("OverlayCount = %d, want 2", d.OverlayCount())
	}
	// The opaque layer takes the non-scaling pipeline even though the
	// translucent one came first.
	if d.Assigned[1] != 0 {
		t.Errorf("opaque layer on slot %d, want 0", d.Assigned[1])
	}
	if d.Assigned[0] == 0 || d.Assigned[0] < 0 {
		t.Errorf("translucent layer on slot %d, want a scaling slot", d.Assigned[0])
	}
	if d.Slots[d.Assigned[0]].Z >= d.Slots[d.Assigned[1]].Z {
		t.Errorf("z order not preserved: %v", d.Slots)
	}
	if a.Phase() != PhaseDecided {
		t.Errorf("Phase = %v, want decided", a.Phase())
	}
	checkDistinctZ(t, &d)
}

func TestAllocateEmpty(t *testing.T) {
	lim := DefaultLimits()
	d := NewAllocator(nil, lim).Allocate(request(&lim))
	if !d.CanRenderAll || d.UsesFallback() || d.OverlayCount() != 0 {
		t.Errorf("empty frame: %+v", d)
	}
}

func TestAllocateTooManyLayers(t *testing.T) {
	lim := DefaultLimits()
	var layers []layer.Layer
	for i := range 6 {
		layers = append(layers, rgba(layer.ID(i+1), i, image.Rect(i*100, 0, i*100+100, 100)))
	}
	d := NewAllocator(nil, lim).Allocate(request(&lim, layers...))

	if d.CanRenderAll {
		t.Fatal("CanRenderAll = true with six layers and four slots")
	}
	if d.FallbackSlot != 0 {
		t.Errorf("FallbackSlot = %d, want the non-scaling slot 0", d.FallbackSlot)
	}
	if d.OverlayCount() != 3 {
		t.Errorf("OverlayCount = %d, want 3", d.OverlayCount())
	}
	if !slices.Equal(d.Fallback, []int{3, 4, 5}) {
		t.Errorf("Fallback = %v, want [3 4 5]", d.Fallback)
	}
	if d.Degraded {
		t.Error("Degraded = true, want false")
	}
	// The fallback plane holds the topmost layers and sits above the
	// overlays.
	for _, s := range d.Slots {
		if s.Enabled && s.Source == SourceLayer && s.Z > d.FallbackZ {
			t.Errorf("overlay %v above the fallback plane z=%d", s, d.FallbackZ)
		}
	}
	checkDistinctZ(t, &d)
}

func TestAllocateSandwich(t *testing.T) {
	lim := DefaultLimits()
	screen := image.Rect(0, 0, 400, 400)
	bottom := withFormat(rgba(1, 0, screen), layer.FormatRGB888)
	top := withFormat(rgba(3, 2, image.Rect(0, 0, 50, 50)), layer.FormatRGB888)

	t.Run("translucent demoted", func(t *testing.T) {
		mid := translucent(rgba(2, 1, image.Rect(100, 100, 200, 200)))
		d := NewAllocator(nil, lim).Allocate(request(&lim, bottom, mid, top))
		if d.OverlayCount() != 0 {
			t.Errorf("OverlayCount = %d, want 0", d.OverlayCount())
		}
		if !slices.Equal(d.Fallback, []int{0, 1, 2}) {
			t.Errorf("Fallback = %v, want [0 1 2]", d.Fallback)
		}
	})

	t.Run("opaque becomes hole", func(t *testing.T) {
		mid := rgba(2, 1, image.Rect(100, 100, 200, 200))
		d := NewAllocator(nil, lim).Allocate(request(&lim, bottom, mid, top))
		if d.Assigned[1] < 0 {
			t.Fatal("opaque middle layer lost its overlay")
		}
		if !slices.Equal(d.Holes, []int{1}) {
			t.Errorf("Holes = %v, want [1]", d.Holes)
		}
		if !slices.Equal(d.Fallback, []int{0, 2}) {
			t.Errorf("Fallback = %v, want [0 2]", d.Fallback)
		}
		if d.Slots[d.Assigned[1]].Z >= d.FallbackZ {
			t.Errorf("hole overlay z=%d not under fallback z=%d", d.Slots[d.Assigned[1]].Z, d.FallbackZ)
		}
	})

	t.Run("translucent without fallback beneath", func(t *testing.T) {
		base := rgba(1, 0, screen)
		mid := translucent(rgba(2, 1, image.Rect(100, 100, 200, 200)))
		d := NewAllocator(nil, lim).Allocate(request(&lim, base, mid, top))
		if d.Assigned[0] < 0 || d.Assigned[1] < 0 {
			t.Errorf("Assigned = %v, want both lower layers on overlays", d.Assigned)
		}
		if len(d.Holes) != 0 {
			t.Errorf("Holes = %v, want none", d.Holes)
		}
	})
}

func TestAllocateNonScalingSwap(t *testing.T) {
	lim := DefaultLimits()
	caps := DefaultSlots()
	caps[0].MaxScaleDeviation = 1

	scaled := testLayer(1, layer.FormatRGBA8888, image.Rect(0, 0, 200, 200), image.Rect(0, 0, 300, 300))
	scaled.Z = 0
	plain := rgba(2, 1, image.Rect(300, 0, 400, 100))

	d := NewAllocator(caps, lim).Allocate(request(&lim, scaled, plain))
	if d.Assigned[1] != 0 {
		t.Errorf("unscaled layer on slot %d, want 0", d.Assigned[1])
	}
	if d.Assigned[0] <= 0 {
		t.Errorf("scaled layer on slot %d, want a scaling slot", d.Assigned[0])
	}
	if !d.CanRenderAll {
		t.Error("CanRenderAll = false")
	}
}

func TestAllocateMemoryBudget(t *testing.T) {
	lim := DefaultLimits()
	lim.SlotMemory = 2 * 256 * 256 * 4
	layers := []layer.Layer{
		rgba(1, 0, image.Rect(0, 0, 256, 256)),
		rgba(2, 1, image.Rect(256, 0, 512, 256)),
		rgba(3, 2, image.Rect(512, 0, 768, 256)),
	}
	d := NewAllocator(nil, lim).Allocate(request(&lim, layers...))
	if d.CanRenderAll {
		t.Fatal("CanRenderAll = true beyond the memory slot")
	}
	if !slices.Equal(d.Fallback, []int{2}) {
		t.Errorf("Fallback = %v, want [2]", d.Fallback)
	}
}

func TestAllocateDecimationBudget(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxDecimatedLayers = 1
	wide := func(id layer.ID, z int) layer.Layer {
		l := testLayer(id, layer.FormatRGBA8888, image.Rect(0, 0, 1000, 200), image.Rect(0, z*200, 200, z*200+200))
		l.Z = z
		return l
	}
	d := NewAllocator(nil, lim).Allocate(request(&lim, wide(1, 0), wide(2, 1)))
	if d.Assigned[0] < 0 {
		t.Error("first decimated layer has no overlay")
	}
	if !slices.Equal(d.Fallback, []int{1}) {
		t.Errorf("Fallback = %v, want [1]", d.Fallback)
	}
}

// =============================================================================
// Secondary output
// =============================================================================

func TestAllocateMirror(t *testing.T) {
	lim := DefaultLimits()
	req := request(&lim, rgba(1, 0, image.Rect(0, 0, 800, 480)))
	req.Clone = CloneMirror

	d := NewAllocator(nil, lim).Allocate(req)
	if !d.CanRenderAll {
		t.Fatalf("CanRenderAll = false: %v", d.Slots)
	}
	sec := d.SecondarySlots()
	if len(sec) != 1 || sec[0].Source != SourceLayer || sec[0].Layer != 0 {
		t.Fatalf("secondary slots = %v, want one copy of layer 0", sec)
	}
	if !sec[0].Caps.Scaling {
		t.Error("secondary copy on a non-scaling slot")
	}
	checkDistinctZ(t, &d)
}

func TestAllocateMirrorColourOrder(t *testing.T) {
	lim := DefaultLimits()
	req := request(&lim, withFormat(rgba(1, 0, image.Rect(0, 0, 800, 480)), layer.FormatRGB565))
	req.Clone = CloneMirror

	d := NewAllocator(nil, lim).Allocate(req)
	if d.CanRenderAll {
		t.Fatal("CanRenderAll = true for a format the secondary cannot show")
	}
	sec := d.SecondarySlots()
	if len(sec) != 1 || sec[0].Source != SourceFallback {
		t.Errorf("secondary slots = %v, want a copy of the fallback plane", sec)
	}
}

func TestAllocateDock(t *testing.T) {
	lim := DefaultLimits()
	video := rgba(2, 1, image.Rect(0, 0, 640, 360))
	video.Flags |= layer.FlagDockable
	req := request(&lim, rgba(1, 0, image.Rect(0, 0, 800, 480)), video)
	req.Clone = CloneDock

	d := NewAllocator(nil, lim).Allocate(req)
	if d.Assigned[1] != -1 || slices.Contains(d.Fallback, 1) {
		t.Errorf("dockable layer shown on the primary: assigned=%v fallback=%v", d.Assigned, d.Fallback)
	}
	sec := d.SecondarySlots()
	if len(sec) != 1 || sec[0].Layer != 1 {
		t.Errorf("secondary slots = %v, want the dockable layer", sec)
	}
	checkDistinctZ(t, &d)
}

func TestAllocateHysteresis(t *testing.T) {
	lim := DefaultLimits()
	a := NewAllocator(nil, lim)

	mirror := request(&lim, rgba(1, 0, image.Rect(0, 0, 800, 480)))
	mirror.Clone = CloneMirror
	first := a.Allocate(mirror)
	held := first.SecondarySlots()[0].Index

	again := a.Allocate(mirror)
	if got := again.SecondarySlots()[0].Index; got != held {
		t.Errorf("secondary moved from slot %d to %d", held, got)
	}

	var layers []layer.Layer
	for i := range 4 {
		layers = append(layers, rgba(layer.ID(i+1), i, image.Rect(i*100, 0, i*100+100, 100)))
	}
	off := request(&lim, layers...)

	d := a.Allocate(off)
	if !d.Degraded || !d.Recompose {
		t.Errorf("Degraded=%v Recompose=%v, want both while the slot drains", d.Degraded, d.Recompose)
	}
	if d.OverlayCount() != 0 {
		t.Errorf("OverlayCount = %d, want 0 while degraded", d.OverlayCount())
	}
	if d.Slots[held].Enabled {
		t.Errorf("slot %d reused in the frame it was released", held)
	}

	d = a.Allocate(off)
	if !d.CanRenderAll || d.OverlayCount() != 4 {
		t.Errorf("after drain: CanRenderAll=%v overlays=%d, want 4 overlays", d.CanRenderAll, d.OverlayCount())
	}

	a.Reset()
	if a.Phase() != PhaseIdle {
		t.Errorf("Phase after Reset = %v", a.Phase())
	}
}

func TestAllocateZDistinct(t *testing.T) {
	lim := DefaultLimits()
	a := NewAllocator(nil, lim)
	for n := range 8 {
		for _, mode := range []CloneMode{CloneOff, CloneMirror, CloneDock} {
			var layers []layer.Layer
			for i := range n {
				l := rgba(layer.ID(i+1), n-i, image.Rect(i*20, i*20, i*20+200, i*20+200))
				if i%2 == 1 {
					l = translucent(l)
				}
				if i%3 == 2 {
					l = withFormat(l, layer.FormatRGB888)
				}
				if i == 1 {
					l.Flags |= layer.FlagDockable
				}
				layers = append(layers, l)
			}
			req := request(&lim, layers...)
			req.Clone = mode
			d := a.Allocate(req)
			checkDistinctZ(t, &d)

			shown := 0
			for i := range layers {
				if d.Assigned[i] >= 0 || slices.Contains(d.Fallback, i) {
					shown++
				}
			}
			for _, s := range d.SecondarySlots() {
				if mode == CloneDock && s.Source == SourceLayer {
					shown++
				}
			}
			if shown != n {
				t.Errorf("n=%d mode=%v: %d layers placed", n, mode, shown)
			}
		}
	}
}
