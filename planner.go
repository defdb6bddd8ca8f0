// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/hotplug"
	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
	"github.com/gogpu/hwc/region"
)

// ErrReservedID is returned by Plan for a layer using layer.BackgroundID.
var ErrReservedID = errors.New("hwc: layer uses the reserved background id")

// Plan is the decision for one frame.
type Plan struct {
	Seq    uint64
	Layers []layer.Layer
	// Verdicts holds the feasibility of each layer, index-aligned with
	// Layers. With an active secondary output they include its limits.
	Verdicts []overlay.Verdict
	Decision overlay.Decision
	Clone    overlay.CloneMode

	// Composed lists the layers of the fallback plane, bottom to top,
	// holes included.
	Composed []int
	// Dirty holds the dirty count of the background followed by one per
	// Composed layer.
	Dirty   []int
	Damage  image.Rectangle
	Regions region.Map
	Stats   blit.Stats

	// GPULayers is set instead of blit entries when the fallback plane is
	// left to the GPU: no blit engine, no framebuffer ring, or a fallback
	// layer without a buffer. The host renders these layers, bottom to
	// top, clearing Decision.Holes and layers flagged FlagClearBeneath,
	// within Damage.
	GPULayers []int

	Submission *Submission

	// Recomposed is set when this frame consumed a recomposition request.
	Recomposed bool
	// Recompose asks for another frame once this one is submitted.
	Recompose bool
}

// Planner plans and submits frames for one display pipeline.
//
// Plan, Submit and Reset must be called from a single goroutine. The
// hotplug.Handler methods, SetClone and Resize may be called from another.
type Planner struct {
	cfg     config
	backend DisplayBackend
	engine  BlitEngine
	state   *CompositorState

	// mu guards the display manager, the screen size and gen.
	mu     sync.Mutex
	screen image.Rectangle
	gen    uint64

	pending atomic.Bool
	planned uint64
}

// New returns a Planner driving backend. engine may be nil, in which case
// the fallback plane is always left to the GPU.
func New(backend DisplayBackend, engine BlitEngine, opts ...Option) (*Planner, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.width <= 0 || cfg.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidScreen, cfg.width, cfg.height)
	}
	p := &Planner{
		cfg:     cfg,
		backend: backend,
		engine:  engine,
		state:   newCompositorState(&cfg),
		screen:  screenRect(cfg.width, cfg.height),
	}
	hlog.Logger().Info("hwc: planner created",
		"screen", p.screen.String(),
		"slots", len(cfg.slots),
		"framebuffers", len(cfg.framebuffers),
		"blit", engine != nil)
	return p, nil
}

func screenRect(w, h int) image.Rectangle { return geom.Screen(w, h) }

// State returns the compositor state. It must only be used from the
// goroutine calling Plan.
func (p *Planner) State() *CompositorState { return p.state }

// Reset drops all cross-frame state except the display session.
func (p *Planner) Reset() {
	p.state.Reset()
}

// Plan decides the composition of f. It does not block.
func (p *Planner) Plan(f Frame) (*Plan, error) {
	for i := range f.Layers {
		if f.Layers[i].ID == layer.BackgroundID {
			return nil, fmt.Errorf("%w: layer %d", ErrReservedID, i)
		}
	}
	st := p.state

	p.mu.Lock()
	disp := *st.Display
	screen := p.screen
	p.mu.Unlock()

	if f.GeometryChanged {
		st.Tracker.Reset()
	}

	p.planned++
	plan := &Plan{
		Seq:        p.planned,
		Layers:     f.Layers,
		Clone:      disp.Clone(),
		Recomposed: p.pending.Swap(false),
	}

	lim := &p.cfg.limits
	plan.Verdicts = overlay.CheckAll(f.Layers, lim, p.cfg.pixelClockKHz)
	if plan.Clone != overlay.CloneOff {
		checkSecondary(&disp, plan, lim)
	}
	plan.Decision = st.Allocator.Allocate(overlay.Request{
		Layers:           f.Layers,
		Verdicts:         plan.Verdicts,
		Clone:            plan.Clone,
		SecondaryFormats: p.cfg.secondaryFormats,
		FallbackFormat:   p.cfg.fallbackFormat(),
	})
	if plan.Decision.Degraded {
		hlog.Logger().Warn("hwc: overlay budget exhausted",
			"seq", plan.Seq,
			"layers", len(f.Layers),
			"clone", plan.Clone.String())
	}
	plan.Recompose = plan.Decision.Recompose

	fb, listDegraded := p.composeFallback(plan, screen)
	overlays := p.configure(plan, &disp, screen)

	var entries []blit.Entry
	if fb != nil {
		entries = st.Blits.Entries()
	}
	sub := Assemble(plan.Seq, overlays, entries, fb)
	sub.Damage = plan.Damage
	sub.Degraded = plan.Decision.Degraded || listDegraded
	plan.Submission = sub

	hlog.Logger().Debug("hwc: frame planned",
		"seq", plan.Seq,
		"overlays", plan.Decision.OverlayCount(),
		"composed", len(plan.Composed),
		"damage", plan.Damage.String(),
		"blits", len(entries),
		"gpu", plan.GPULayers != nil)
	return plan, nil
}

// checkSecondary narrows the verdicts by what the secondary output can
// show: the mirrored copy of every layer, or the docked layer.
func checkSecondary(disp *display.Manager, plan *Plan, lim *overlay.Limits) {
	mode, _ := disp.Mode()
	for i := range plan.Layers {
		v := &plan.Verdicts[i]
		if !v.Eligible {
			continue
		}
		m := plan.Layers[i]
		switch plan.Clone {
		case overlay.CloneMirror:
			m.Frame, m.Transform = disp.Mirror(m.Frame, m.Transform)
		case overlay.CloneDock:
			if !m.Flags.Has(layer.FlagDockable) {
				continue
			}
			m.Frame, m.Transform = disp.Dock(m.Crop, m.Transform)
		}
		sv := overlay.Check(&m, lim, mode.PixelClockKHz)
		v.Eligible = sv.Eligible
		v.Reasons |= sv.Reasons
		v.Scaled = v.Scaled || sv.Scaled
		v.NeedsDecimation = v.NeedsDecimation || sv.NeedsDecimation
	}
}

// composeFallback runs damage tracking, partitioning and blit synthesis
// for the fallback plane. It returns the framebuffer written, or nil when
// no blits are issued.
func (p *Planner) composeFallback(plan *Plan, screen image.Rectangle) (*layer.Buffer, bool) {
	st := p.state
	dec := &plan.Decision
	if !dec.UsesFallback() {
		// The plane is off screen; its contents are stale once it returns.
		st.Tracker.Reset()
		return nil, false
	}

	composed := slices.Concat(dec.Fallback, dec.Holes)
	slices.SortFunc(composed, func(i, j int) int {
		return cmp.Or(cmp.Compare(plan.Layers[i].Z, plan.Layers[j].Z), cmp.Compare(i, j))
	})
	plan.Composed = composed

	fb := st.Framebuffer()
	gpu := p.engine == nil || fb == nil
	tracked := make([]layer.Layer, len(composed))
	clears := make([]bool, len(composed))
	for k, i := range composed {
		l := plan.Layers[i]
		switch {
		case l.Flags.Has(layer.FlagProtected):
			// Protected content is never read back; its area stays clear.
			hlog.Logger().Debug("hwc: protected layer cleared", "seq", plan.Seq, "id", l.ID)
			fallthrough
		case slices.Contains(dec.Holes, i) || l.Flags.Has(layer.FlagClearBeneath):
			clears[k] = true
			// Only the area matters; a new buffer must not count as damage.
			l.Buffer = nil
		case l.Buffer == nil:
			gpu = true
		}
		tracked[k] = l
	}

	res := st.Tracker.Update(tracked, screen.Dx(), screen.Dy())
	plan.Damage = res.Damage
	plan.Dirty = res.Counts
	if gpu {
		plan.GPULayers = composed
		return nil, false
	}

	rects := make([]image.Rectangle, 0, len(tracked)+1)
	sources := make([]blit.Source, 0, len(tracked)+1)
	rects = append(rects, screen)
	sources = append(sources, blit.Source{Clear: true, Color: p.cfg.clearColor, Dirty: res.Counts[0]})
	for k := range tracked {
		rects = append(rects, tracked[k].Frame)
		sources = append(sources, blit.Source{
			Layer: &tracked[k],
			Clear: clears[k],
			Dirty: res.Counts[k+1],
		})
	}
	plan.Regions = region.Partition(rects, res.Damage, screen.Dx(), screen.Dy())

	list := st.Blits
	list.Reset()
	plan.Stats = blit.Synthesize(&blit.Input{
		Map:     &plan.Regions,
		Sources: sources,
		Damage:  res.Damage,
		Target:  blit.SurfaceOf(fb),
	}, list)

	if list.Degraded() {
		hlog.Logger().Warn("hwc: blit list full",
			"seq", plan.Seq,
			"capacity", list.Cap(),
			"dropped", list.Dropped())
		// The framebuffer misses the dropped entries: repaint everything
		// on the next frame.
		st.Tracker.Reset()
		plan.Recompose = true
		return fb, true
	}
	return fb, false
}

// configure builds the overlay configuration of every pipeline.
func (p *Planner) configure(plan *Plan, disp *display.Manager, screen image.Rectangle) []OverlayConfig {
	dec := &plan.Decision
	cfgs := make([]OverlayConfig, len(dec.Slots))
	for k, s := range dec.Slots {
		c := OverlayConfig{
			Slot:    s.Index,
			Enabled: s.Enabled,
			Output:  s.Output,
			Source:  s.Source,
			Z:       s.Z,
			Buffer:  -1,
		}
		if s.Enabled {
			switch s.Source {
			case overlay.SourceLayer:
				p.configureLayer(&c, &plan.Layers[s.Layer], plan.Clone, disp)
			case overlay.SourceFallback:
				p.configureFallback(&c, dec, screen, disp)
			}
		}
		cfgs[k] = c
	}
	return cfgs
}

func (p *Planner) configureLayer(c *OverlayConfig, l *layer.Layer, clone overlay.CloneMode, disp *display.Manager) {
	c.Layer = l.ID
	c.Handle = l.Handle()
	if b := l.Buffer; b != nil {
		c.Format = b.Format
		c.Width, c.Height, c.Stride = b.Width, b.Height, b.Stride
	}
	c.Crop = l.Crop
	c.Window = l.Frame
	c.Transform = l.Transform
	c.Premultiplied = l.Blend == layer.BlendPremultiplied
	if c.Output != overlay.OutputSecondary {
		return
	}
	if clone == overlay.CloneDock {
		c.Window, c.Transform = disp.Dock(l.Crop, l.Transform)
	} else {
		c.Window, c.Transform = disp.Mirror(l.Frame, l.Transform)
	}
}

func (p *Planner) configureFallback(c *OverlayConfig, dec *overlay.Decision, screen image.Rectangle, disp *display.Manager) {
	if fb := p.state.Framebuffer(); fb != nil {
		c.Handle = fb.Handle
		c.Format = fb.Format
		c.Width, c.Height, c.Stride = fb.Width, fb.Height, fb.Stride
	} else {
		c.Format = p.cfg.fallbackFormat()
		c.Width, c.Height = screen.Dx(), screen.Dy()
	}
	c.Crop = screen
	c.Window = screen

	// Overlays below the plane show through its cleared areas.
	for _, s := range dec.Slots {
		if s.Enabled && s.Output == overlay.OutputPrimary && s.Source == overlay.SourceLayer && s.Z < dec.FallbackZ {
			c.Premultiplied = true
			break
		}
	}
	if c.Output == overlay.OutputSecondary {
		c.Window, c.Transform = disp.Mirror(screen, geom.Transform{})
	}
}

// Submit hands plan to the blit engine and the display backend. A blit
// engine failure drops the damage history and requests another frame; a
// display backend failure is returned.
func (p *Planner) Submit(ctx context.Context, plan *Plan) error {
	if plan == nil || plan.Submission == nil {
		return ErrNilPlan
	}
	if plan.Seq != p.planned {
		return fmt.Errorf("%w: seq %d, latest %d", ErrStalePlan, plan.Seq, p.planned)
	}
	st := p.state
	sub := plan.Submission
	log := hlog.Logger()

	if len(sub.Blits) > 0 && p.engine != nil {
		if err := p.engine.Submit(ctx, sub.Blits, sub.Handles); err != nil {
			log.Warn("hwc: blit submission failed", "seq", plan.Seq, "err", err)
			st.Tracker.Reset()
			plan.Recompose = true
		}
	}
	if err := p.backend.Commit(ctx, sub); err != nil {
		return fmt.Errorf("hwc: commit frame %d: %w", plan.Seq, err)
	}

	st.Tracker.Commit()
	st.advance(sub.Framebuffer >= 0)
	if plan.Recompose {
		p.requestRecompose()
	}
	return nil
}

// SetClone sets the clone mode and the output transform of the secondary
// output, negotiating a mode when a display is attached.
func (p *Planner) SetClone(ctx context.Context, mode overlay.CloneMode, t geom.Transform) error {
	p.mu.Lock()
	p.state.Display.SetClone(mode, t)
	p.gen++
	p.mu.Unlock()

	err := p.negotiate(ctx)
	p.requestRecompose()
	return err
}

// Resize changes the primary screen size. Damage history is dropped by
// the next Plan.
func (p *Planner) Resize(ctx context.Context, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidScreen, w, h)
	}
	p.mu.Lock()
	p.screen = screenRect(w, h)
	p.state.Display.SetScreen(p.screen)
	p.gen++
	p.mu.Unlock()

	err := p.negotiate(ctx)
	p.requestRecompose()
	return err
}

// Attached implements hotplug.Handler.
func (p *Planner) Attached(ctx context.Context, e hotplug.Attach) error {
	p.mu.Lock()
	p.state.Display.Attach(e.Display)
	p.gen++
	p.mu.Unlock()

	err := p.negotiate(ctx)
	p.requestRecompose()
	return err
}

// Detached implements hotplug.Handler.
func (p *Planner) Detached(_ context.Context, e hotplug.Detach) error {
	p.mu.Lock()
	if p.state.Display.Display() == e.Display {
		p.state.Display.Detach()
		p.gen++
	}
	p.mu.Unlock()

	p.requestRecompose()
	return nil
}

// Vsync implements hotplug.Handler. A pending recomposition request is
// repeated until a Plan consumes it.
func (p *Planner) Vsync(e hotplug.VsyncTick) {
	if p.cfg.vsync != nil {
		p.cfg.vsync(e)
	}
	if p.pending.Load() && p.cfg.recompose != nil {
		p.cfg.recompose()
	}
}

// negotiate runs mode negotiation on a copy of the display manager so
// that Plan is never blocked behind the backend. The result is dropped
// when the configuration changed meanwhile.
func (p *Planner) negotiate(ctx context.Context) error {
	p.mu.Lock()
	if !p.state.Display.NeedsNegotiation() {
		p.mu.Unlock()
		return nil
	}
	m := *p.state.Display
	gen := p.gen
	p.mu.Unlock()

	err := m.Negotiate(ctx, p.backend)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		hlog.Logger().Debug("hwc: negotiation superseded", "display", m.Display())
		return err
	}
	*p.state.Display = m
	return err
}

func (p *Planner) requestRecompose() {
	p.pending.Store(true)
	if p.cfg.recompose != nil {
		p.cfg.recompose()
	}
}

var _ hotplug.Handler = (*Planner)(nil)
