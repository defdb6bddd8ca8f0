// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"cmp"
	"math"
	"slices"

	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/layer"
)

// Phase is the allocator state within one frame.
type Phase uint8

// Allocator phases. A frame walks Idle -> Counting -> Allocating -> Decided.
const (
	PhaseIdle Phase = iota
	PhaseCounting
	PhaseAllocating
	PhaseDecided
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseCounting:
		return "counting"
	case PhaseAllocating:
		return "allocating"
	case PhaseDecided:
		return "decided"
	default:
		return "idle"
	}
}

// Request is the input of one allocation.
type Request struct {
	Layers []layer.Layer
	// Verdicts holds the Check result of each layer, index-aligned.
	Verdicts []Verdict

	Clone CloneMode
	// SecondaryFormats is the set of formats the secondary output path
	// can show with the correct colour order.
	SecondaryFormats layer.FormatSet
	// FallbackFormat is the format of the fallback framebuffer.
	FallbackFormat layer.Format
}

// Decision is the outcome of one allocation.
type Decision struct {
	// Slots holds one entry per hardware pipeline.
	Slots []Slot
	// Assigned maps each layer to the primary slot showing it, or -1.
	Assigned []int
	// Fallback lists the layers composed into the fallback plane, bottom
	// to top.
	Fallback []int
	// Holes lists opaque overlay layers that sit under the fallback plane
	// and over a fallback layer. The fallback plane must be transparent
	// where they are.
	Holes []int

	// FallbackSlot is the primary slot showing the fallback plane, or -1.
	FallbackSlot int
	// FallbackZ is the hardware z-order of the fallback plane, or -1.
	FallbackZ int

	// CanRenderAll is set when every visible layer went to an overlay.
	CanRenderAll bool
	// Degraded is set when the slot budget forced a reduced configuration.
	Degraded bool
	// Recompose asks the window system for another frame once the
	// degraded state has been committed.
	Recompose bool
}

// OverlayCount returns the number of primary slots fetching a layer.
func (d *Decision) OverlayCount() int {
	n := 0
	for _, s := range d.Slots {
		if s.Enabled && s.Output == OutputPrimary && s.Source == SourceLayer {
			n++
		}
	}
	return n
}

// SecondarySlots returns the enabled slots of the secondary output.
func (d *Decision) SecondarySlots() []Slot {
	var out []Slot
	for _, s := range d.Slots {
		if s.Enabled && s.Output == OutputSecondary {
			out = append(out, s)
		}
	}
	return out
}

// UsesFallback reports whether the fallback plane is shown.
func (d *Decision) UsesFallback() bool { return d.FallbackSlot >= 0 }

// Allocator distributes overlay slots frame by frame. It keeps the slot
// ownership of the previous frame, so a single Allocator must serve every
// frame of one display pipeline. It is not safe for concurrent use.
type Allocator struct {
	caps   []SlotCaps
	limits Limits
	phase  Phase

	owner []Output
	drain []int
}

// NewAllocator returns an allocator for the given pipelines.
func NewAllocator(caps []SlotCaps, lim Limits) *Allocator {
	if len(caps) == 0 {
		caps = DefaultSlots()
	}
	return &Allocator{
		caps:   slices.Clone(caps),
		limits: lim,
		owner:  make([]Output, len(caps)),
		drain:  make([]int, len(caps)),
	}
}

// Phase returns the current phase.
func (a *Allocator) Phase() Phase { return a.phase }

// Limits returns the limits the allocator was built with.
func (a *Allocator) Limits() Limits { return a.limits }

// Slots returns the pipeline capabilities.
func (a *Allocator) Slots() []SlotCaps { return slices.Clone(a.caps) }

// Reset forgets the slot ownership of earlier frames.
func (a *Allocator) Reset() {
	clear(a.owner)
	clear(a.drain)
	a.phase = PhaseIdle
}

// Allocate decides the overlay configuration of one frame.
func (a *Allocator) Allocate(req Request) Decision {
	a.phase = PhaseCounting
	cloneOn := req.Clone != CloneOff

	n := len(a.caps)
	reserved := make([]bool, n)
	blocked := make([]bool, n)
	for i := range n {
		if a.owner[i] == OutputSecondary {
			if cloneOn {
				reserved[i] = true
			} else {
				a.owner[i] = OutputNone
				a.drain[i] = a.limits.HysteresisFrames
			}
		}
		blocked[i] = a.drain[i] > 0
	}

	order := visibleOrder(req.Layers)
	dock := -1
	if req.Clone == CloneDock {
		for _, i := range order {
			if req.Layers[i].Flags.Has(layer.FlagDockable) && req.Verdicts[i].Eligible {
				dock = i
				break
			}
		}
	}
	primary := slices.DeleteFunc(slices.Clone(order), func(i int) bool { return i == dock })

	a.phase = PhaseAllocating
	al := a.newAllocation(&req, reserved, blocked, dock)
	if dock >= 0 && al.secondaryShort {
		// No pipeline for the secondary output: keep the layer on the
		// primary and retry once the budget frees up.
		dock = -1
		primary = order
		al = a.newAllocation(&req, reserved, blocked, dock)
		al.secondaryShort = true
	}
	if len(primary) > 0 {
		short := al.secondaryShort
		var ok bool
		al, ok = a.attempt(&req, primary, reserved, blocked, dock, false)
		if !ok {
			al, _ = a.attempt(&req, primary, reserved, blocked, dock, true)
		}
		if al.starved {
			al = a.fallbackOnly(&req, primary, reserved, blocked, dock)
			al.degraded = true
		}
		al.secondaryShort = al.secondaryShort || short
	}

	d := al.decide()
	a.commitOwnership(&d, blocked)
	a.phase = PhaseDecided

	hlog.Logger().Debug("overlay: decision",
		"layers", len(req.Layers),
		"overlays", d.OverlayCount(),
		"fallback", len(d.Fallback),
		"holes", len(d.Holes),
		"clone", req.Clone.String(),
		"degraded", d.Degraded)
	return d
}

// commitOwnership records which output holds each slot and advances the
// drain counters.
func (a *Allocator) commitOwnership(d *Decision, blocked []bool) {
	for i := range a.caps {
		if blocked[i] && a.drain[i] > 0 {
			a.drain[i]--
		}
		s := d.Slots[i]
		switch {
		case s.Enabled:
			a.owner[i] = s.Output
		case a.owner[i] == OutputSecondary:
			// Disabled on the secondary in this frame; the primary may
			// claim it once the hysteresis window has passed.
			a.owner[i] = OutputNone
			a.drain[i] = max(a.limits.HysteresisFrames-1, 0)
		default:
			a.owner[i] = OutputNone
		}
	}
}

// visibleOrder returns the indices of layers with a non-empty frame,
// sorted bottom to top.
func visibleOrder(layers []layer.Layer) []int {
	order := make([]int, 0, len(layers))
	for i := range layers {
		if !layers[i].Frame.Empty() {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return cmp.Compare(layers[x].Z, layers[y].Z)
	})
	return order
}

type allocation struct {
	a   *Allocator
	req *Request

	slots    []Slot
	reserved []bool
	blocked  []bool

	assigned []int
	fallback []int
	holes    []int
	fbSlot   int

	memory    int
	decimated int

	starved        bool
	secondaryShort bool
	degraded       bool
}

func (a *Allocator) newAllocation(req *Request, reserved, blocked []bool, dock int) *allocation {
	al := &allocation{
		a:        a,
		req:      req,
		slots:    make([]Slot, len(a.caps)),
		reserved: reserved,
		blocked:  blocked,
		assigned: make([]int, len(req.Layers)),
		fbSlot:   -1,
	}
	for i, c := range a.caps {
		al.slots[i] = Slot{Index: i, Caps: c, Layer: -1, Z: -1}
	}
	for i := range al.assigned {
		al.assigned[i] = -1
	}
	if dock >= 0 {
		if c := al.pickSecondary(); c >= 0 {
			al.take(c, OutputSecondary, SourceLayer, dock)
		} else {
			al.secondaryShort = true
		}
	}
	return al
}

// attempt grants slots bottom to top. Without a fallback plane it gives up
// at the first layer that cannot be placed.
func (a *Allocator) attempt(req *Request, primary []int, reserved, blocked []bool, dock int, withFallback bool) (*allocation, bool) {
	al := a.newAllocation(req, reserved, blocked, dock)
	mirror := req.Clone == CloneMirror
	if withFallback {
		al.reserveFallback()
	}

	lim := &a.limits
	for _, i := range primary {
		l := &req.Layers[i]
		v := req.Verdicts[i]
		ok := v.Eligible &&
			al.memory+v.Memory <= lim.SlotMemory &&
			(!v.NeedsDecimation || al.decimated < lim.MaxDecimatedLayers)
		if ok && mirror && !req.SecondaryFormats.Has(l.Format()) {
			ok = false
		}
		if ok {
			if s := al.pickPrimary(i); s >= 0 {
				al.take(s, OutputPrimary, SourceLayer, i)
				al.assigned[i] = s
			} else {
				ok = false
				al.noteStarved()
			}
		}
		if ok && mirror {
			if c := al.pickSecondary(); c >= 0 {
				al.take(c, OutputSecondary, SourceLayer, i)
			} else {
				al.release(i)
				ok = false
				al.noteStarved()
			}
		}
		if !ok {
			if !withFallback {
				return al, false
			}
			al.fallback = append(al.fallback, i)
			continue
		}
		al.memory += v.Memory
		if v.NeedsDecimation {
			al.decimated++
		}
	}
	if withFallback {
		al.resolveSandwich()
	}
	return al, true
}

// fallbackOnly composes every primary layer into the fallback plane.
func (a *Allocator) fallbackOnly(req *Request, primary []int, reserved, blocked []bool, dock int) *allocation {
	al := a.newAllocation(req, reserved, blocked, dock)
	al.reserveFallback()
	al.fallback = slices.Clone(primary)
	return al
}

func (al *allocation) reserveFallback() {
	ns, first := -1, -1
	for i, c := range al.a.caps {
		if !al.free(i, false) {
			continue
		}
		if first < 0 {
			first = i
		}
		if !c.Scaling {
			ns = i
			break
		}
	}
	if ns < 0 {
		ns = first
	}
	if ns < 0 {
		al.degraded = true
		return
	}
	al.take(ns, OutputPrimary, SourceFallback, -1)
	al.fbSlot = ns

	if al.req.Clone != CloneMirror {
		return
	}
	if !al.req.SecondaryFormats.Has(al.req.FallbackFormat) {
		al.secondaryShort = true
		return
	}
	if c := al.pickSecondary(); c >= 0 {
		al.take(c, OutputSecondary, SourceFallback, -1)
	} else {
		al.secondaryShort = true
	}
}

func (al *allocation) free(i int, forSecondary bool) bool {
	if al.slots[i].Enabled || al.blocked[i] {
		return false
	}
	return forSecondary || !al.reserved[i]
}

func (al *allocation) take(i int, out Output, src Source, layerIdx int) {
	s := &al.slots[i]
	s.Enabled = true
	s.Output = out
	s.Source = src
	s.Layer = layerIdx
}

// release frees every slot showing layer i.
func (al *allocation) release(i int) {
	for k := range al.slots {
		s := &al.slots[k]
		if s.Enabled && s.Source == SourceLayer && s.Layer == i {
			*s = Slot{Index: s.Index, Caps: s.Caps, Layer: -1, Z: -1}
		}
	}
	al.assigned[i] = -1
}

func (al *allocation) noteStarved() {
	if slices.Contains(al.blocked, true) {
		al.starved = true
	}
}

// pickPrimary returns a primary slot for layer i, or -1. The first
// unscaled opaque layer gets the non-scaling pipeline; a later layer that
// is less scaled, or equally scaled but opaque where the occupant is not,
// takes it over and the occupant moves to a scaling pipeline.
func (al *allocation) pickPrimary(i int) int {
	l := &al.req.Layers[i]
	dev := l.ScaleDeviation()

	ns := -1
	for k, c := range al.a.caps {
		if !c.Scaling && dev <= c.MaxScaleDeviation && al.free(k, false) {
			ns = k
			break
		}
	}
	if ns >= 0 && l.Opaque() {
		return ns
	}

	sc := -1
	for k, c := range al.a.caps {
		if c.Scaling && al.free(k, false) {
			sc = k
			break
		}
	}
	if sc < 0 {
		return ns
	}
	if l.Opaque() {
		for k, s := range al.slots {
			if !s.Enabled || s.Caps.Scaling || s.Output != OutputPrimary ||
				s.Source != SourceLayer || dev > s.Caps.MaxScaleDeviation {
				continue
			}
			x := &al.req.Layers[s.Layer]
			xdev := x.ScaleDeviation()
			if dev < xdev || (dev == xdev && !x.Opaque()) {
				al.take(sc, OutputPrimary, SourceLayer, s.Layer)
				al.assigned[s.Layer] = sc
				al.slots[k].Enabled = false
				return k
			}
		}
	}
	return sc
}

// pickSecondary returns a scaling slot for the secondary output, preferring
// slots the secondary already held, or -1.
func (al *allocation) pickSecondary() int {
	for k, c := range al.a.caps {
		if c.Scaling && al.reserved[k] && al.free(k, true) {
			return k
		}
	}
	for k := len(al.a.caps) - 1; k >= 0; k-- {
		if al.a.caps[k].Scaling && al.free(k, true) {
			return k
		}
	}
	return -1
}

func (al *allocation) compare(i, j int) int {
	return cmp.Or(cmp.Compare(al.req.Layers[i].Z, al.req.Layers[j].Z), cmp.Compare(i, j))
}

func (al *allocation) below(i, j int) bool { return al.compare(i, j) < 0 }

// resolveSandwich handles overlays that end up under the fallback plane
// while a fallback layer lies under them. Translucent ones would need
// that fallback layer to show through and are demoted; opaque ones become
// holes cleared in the fallback plane.
func (al *allocation) resolveSandwich() {
	for {
		al.holes = al.holes[:0]
		if len(al.fallback) == 0 {
			return
		}
		slices.SortFunc(al.fallback, al.compare)
		top := al.fallback[len(al.fallback)-1]

		var demote []int
		for _, s := range al.slots {
			if !s.Enabled || s.Output != OutputPrimary || s.Source != SourceLayer {
				continue
			}
			o := s.Layer
			if !al.below(o, top) || !al.overFallback(o) {
				continue
			}
			if al.req.Layers[o].Opaque() {
				al.holes = append(al.holes, o)
			} else {
				demote = append(demote, o)
			}
		}
		if len(demote) == 0 {
			slices.SortFunc(al.holes, al.compare)
			return
		}
		for _, o := range demote {
			al.release(o)
			al.memory -= al.req.Verdicts[o].Memory
			if al.req.Verdicts[o].NeedsDecimation {
				al.decimated--
			}
			al.fallback = append(al.fallback, o)
		}
	}
}

// overFallback reports whether a fallback layer below o overlaps it.
func (al *allocation) overFallback(o int) bool {
	frame := al.req.Layers[o].Frame
	for _, f := range al.fallback {
		if al.below(f, o) && al.req.Layers[f].Frame.Overlaps(frame) {
			return true
		}
	}
	return false
}

type plane struct {
	slot int
	z    int
	idx  int
}

func (al *allocation) planeKey(s Slot) (z, idx int) {
	switch s.Source {
	case SourceLayer:
		return al.req.Layers[s.Layer].Z, s.Layer
	default:
		if len(al.fallback) == 0 {
			return math.MinInt, -1
		}
		top := al.fallback[len(al.fallback)-1]
		return al.req.Layers[top].Z, top
	}
}

func (al *allocation) decide() Decision {
	d := Decision{
		Slots:        al.slots,
		Assigned:     al.assigned,
		Fallback:     al.fallback,
		Holes:        slices.Clone(al.holes),
		FallbackSlot: al.fbSlot,
		FallbackZ:    -1,
	}

	// Hardware z-order: primary planes first, then the secondary ones,
	// each group sorted bottom to top.
	z := 0
	for _, out := range []Output{OutputPrimary, OutputSecondary} {
		var planes []plane
		for k, s := range al.slots {
			if s.Enabled && s.Output == out {
				pz, pi := al.planeKey(s)
				planes = append(planes, plane{slot: k, z: pz, idx: pi})
			}
		}
		slices.SortFunc(planes, func(x, y plane) int {
			if c := cmp.Compare(x.z, y.z); c != 0 {
				return c
			}
			if c := cmp.Compare(x.idx, y.idx); c != 0 {
				return c
			}
			return cmp.Compare(x.slot, y.slot)
		})
		for _, p := range planes {
			d.Slots[p.slot].Z = z
			z++
		}
	}
	if d.FallbackSlot >= 0 {
		d.FallbackZ = d.Slots[d.FallbackSlot].Z
	}

	d.Degraded = al.degraded || al.secondaryShort
	d.Recompose = d.Degraded
	d.CanRenderAll = len(d.Fallback) == 0 && !d.Degraded
	return d
}
