// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scenario

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/hotplug"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
	"github.com/gogpu/hwc/softblit"
)

// ErrModeRejected is returned by Backend.SetMode when the scene makes mode
// switches fail.
var ErrModeRejected = errors.New("scenario: mode rejected")

// DefaultFramebuffers is the fallback ring size when a scene sets none.
const DefaultFramebuffers = 2

// framebufferBase keeps framebuffer handles clear of scene handles.
const framebufferBase layer.Handle = 1 << 32

// Commit summarizes one committed submission.
type Commit struct {
	Seq         uint64
	Primary     int
	Secondary   int
	Framebuffer bool
	Damage      image.Rectangle
	Degraded    bool
}

// Backend is a display backend that records commits and serves the modes
// of the scene's external display.
type Backend struct {
	mu      sync.Mutex
	modes   []display.Mode
	failSet bool
	current display.Mode
	set     bool
	commits []Commit
	log     *slog.Logger
}

// NewBackend returns a backend offering modes on the secondary output. A
// nil logger discards output.
func NewBackend(modes []display.Mode, failSetMode bool, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Backend{modes: slices.Clone(modes), failSet: failSetMode, log: log}
}

// Modes implements display.ModeSetter.
func (b *Backend) Modes(_ context.Context, out overlay.Output) ([]display.Mode, error) {
	if out != overlay.OutputSecondary {
		return nil, nil
	}
	return slices.Clone(b.modes), nil
}

// SetMode implements display.ModeSetter.
func (b *Backend) SetMode(_ context.Context, out overlay.Output, m display.Mode) error {
	if b.failSet {
		b.log.Info("backend: mode rejected", "output", out, "mode", m)
		return fmt.Errorf("%w: %v", ErrModeRejected, m)
	}
	b.mu.Lock()
	b.current, b.set = m, true
	b.mu.Unlock()
	b.log.Info("backend: mode set", "output", out, "mode", m)
	return nil
}

// Commit implements hwc.DisplayBackend.
func (b *Backend) Commit(_ context.Context, s *hwc.Submission) error {
	c := Commit{
		Seq:         s.Seq,
		Primary:     len(s.Enabled(overlay.OutputPrimary)),
		Secondary:   len(s.Enabled(overlay.OutputSecondary)),
		Framebuffer: s.Framebuffer >= 0,
		Damage:      s.Damage,
		Degraded:    s.Degraded,
	}
	b.mu.Lock()
	b.commits = append(b.commits, c)
	b.mu.Unlock()
	b.log.Debug("backend: commit", "seq", c.Seq, "primary", c.Primary, "secondary", c.Secondary,
		"blits", len(s.Blits), "damage", c.Damage, "degraded", c.Degraded)
	return nil
}

// Commits returns the recorded commits.
func (b *Backend) Commits() []Commit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.commits)
}

// Mode returns the mode last set on the secondary output.
func (b *Backend) Mode() (display.Mode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.set
}

// Step is the outcome of one frame.
type Step struct {
	Index  int
	Screen image.Rectangle
	Plan   *hwc.Plan

	// Framebuffer is the fallback plane written this frame, or nil.
	Framebuffer image.Image
}

// Runner steps a scene through a planner and the software blitter.
type Runner struct {
	file    *File
	engine  *softblit.Engine
	backend *Backend
	planner *hwc.Planner
	bufs    map[layer.Handle]*layer.Buffer
	outT    geom.Transform
	log     *slog.Logger
	next    int
}

// Config configures a Runner.
type Config struct {
	// Log receives runner and backend messages. Nil discards them.
	Log *slog.Logger
	// Workers, when positive, composes subregions concurrently.
	Workers int
	// Options are applied after the ones derived from the scene.
	Options []hwc.Option
}

// NewRunner allocates the scene buffers and creates the planner.
func NewRunner(ctx context.Context, f *File, cfg Config) (*Runner, error) {
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var engineOpts []softblit.Option
	if cfg.Workers > 0 {
		engineOpts = append(engineOpts, softblit.WithWorkers(cfg.Workers))
	}
	r := &Runner{
		file:   f,
		engine: softblit.New(engineOpts...),
		bufs:   make(map[layer.Handle]*layer.Buffer, len(f.Buffers)),
		log:    log,
	}
	for i := range f.Buffers {
		b := &f.Buffers[i]
		format, err := b.format()
		if err != nil {
			r.Close()
			return nil, err
		}
		c, err := ParseColor(b.Color)
		if err != nil {
			r.Close()
			return nil, err
		}
		buf, img := r.engine.AllocInto(layer.Handle(b.Handle), b.Width, b.Height, format)
		Fill(img, c)
		r.bufs[buf.Handle] = &buf
	}

	n := f.Framebuffers
	if n == 0 {
		n = DefaultFramebuffers
	}
	var fbs []layer.Buffer
	for i := range max(n, 0) {
		fb, _ := r.engine.AllocInto(framebufferBase+layer.Handle(i), f.Screen.Width, f.Screen.Height, layer.FormatRGBA8888)
		fbs = append(fbs, fb)
	}

	var modes []display.Mode
	var failSet bool
	if e := f.External; e != nil {
		modes, failSet = e.Modes, e.FailSetMode
	}
	r.backend = NewBackend(modes, failSet, log)

	all := []hwc.Option{
		hwc.WithScreen(f.Screen.Width, f.Screen.Height),
		hwc.WithFramebuffers(fbs...),
		hwc.WithLimits(f.Limits.Limits()),
	}
	if f.PixelClockKHz > 0 {
		all = append(all, hwc.WithPixelClock(f.PixelClockKHz))
	}
	p, err := hwc.New(r.backend, r.engine, append(all, cfg.Options...)...)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.planner = p

	if e := f.External; e != nil {
		r.outT, _ = transform(e.Rotation, e.Mirror)
		clone, _ := ParseClone(e.Clone)
		if err := p.SetClone(ctx, clone, r.outT); err != nil {
			log.Warn("scenario: clone setup failed", "err", err)
		}
		if !e.Hotplug {
			r.attach(ctx)
		}
	}
	return r, nil
}

func (r *Runner) attach(ctx context.Context) {
	ev := hotplug.Attach{Display: r.file.External.Name, Time: time.Now()}
	if err := r.planner.Attached(ctx, ev); err != nil {
		r.log.Warn("scenario: attach", "display", ev.Display, "err", err)
	}
}

// Close stops the blitter workers.
func (r *Runner) Close() { r.engine.Close() }

// Planner returns the planner.
func (r *Runner) Planner() *hwc.Planner { return r.planner }

// Engine returns the software blitter holding every buffer.
func (r *Runner) Engine() *softblit.Engine { return r.engine }

// Backend returns the recording display backend.
func (r *Runner) Backend() *Backend { return r.backend }

// File returns the scene.
func (r *Runner) File() *File { return r.file }

// Len returns the number of frames in the scene.
func (r *Runner) Len() int { return len(r.file.Frames) }

// Done reports whether every frame has been stepped.
func (r *Runner) Done() bool { return r.next >= len(r.file.Frames) }

// Step delivers the display events of the next frame, then plans and
// submits it. It returns io.EOF after the last frame.
func (r *Runner) Step(ctx context.Context) (*Step, error) {
	if r.Done() {
		return nil, io.EOF
	}
	fr := &r.file.Frames[r.next]
	if fr.Detach {
		_ = r.planner.Detached(ctx, hotplug.Detach{Display: r.file.External.Name, Time: time.Now()})
	}
	if fr.Attach {
		r.attach(ctx)
	}
	if fr.Clone != nil {
		clone, _ := ParseClone(*fr.Clone)
		if err := r.planner.SetClone(ctx, clone, r.outT); err != nil {
			r.log.Warn("scenario: clone change", "clone", clone, "err", err)
		}
	}

	layers := make([]layer.Layer, 0, len(fr.Layers))
	for i := range fr.Layers {
		l, err := fr.Layers[i].convert(r.bufs)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", r.next, err)
		}
		layers = append(layers, l)
	}
	plan, err := r.planner.Plan(hwc.Frame{Layers: layers, GeometryChanged: fr.GeometryChanged})
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", r.next, err)
	}
	if err := r.planner.Submit(ctx, plan); err != nil {
		return nil, fmt.Errorf("frame %d: %w", r.next, err)
	}

	st := &Step{Index: r.next, Screen: geom.Screen(r.file.Screen.Width, r.file.Screen.Height), Plan: plan}
	if s := plan.Submission; s.Framebuffer >= 0 {
		st.Framebuffer, _ = r.engine.Image(s.Handles[s.Framebuffer])
	}
	r.next++
	return st, nil
}

// Fill paints img with c. YCbCr images receive the converted samples.
func Fill(img image.Image, c color.RGBA) {
	switch m := img.(type) {
	case draw.Image:
		draw.Draw(m, m.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	case *image.YCbCr:
		y, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
		for i := range m.Y {
			m.Y[i] = y
		}
		for i := range m.Cb {
			m.Cb[i] = cb
		}
		for i := range m.Cr {
			m.Cr[i] = cr
		}
	}
}
