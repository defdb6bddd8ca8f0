// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package softblit executes blit entries on the CPU with
// golang.org/x/image/draw. It stands in for a 2D blit engine in tests and
// tools.
package softblit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/internal/parallel"
	"github.com/gogpu/hwc/layer"
)

var (
	// ErrUnknownHandle is returned for an entry naming an unregistered
	// buffer.
	ErrUnknownHandle = errors.New("softblit: unknown buffer handle")

	// ErrNotWritable is returned when a destination is not a draw.Image.
	ErrNotWritable = errors.New("softblit: destination not writable")
)

// Stats counts the work done by an Engine.
type Stats struct {
	Submits int
	Entries int
	Pixels  int
}

// Engine is a software blit engine over registered images. It is safe
// for concurrent use.
type Engine struct {
	mu     sync.Mutex
	images map[layer.Handle]image.Image
	stats  Stats
	pool   *parallel.Pool
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers executes the subregions of a submission on n goroutines.
// Zero or a negative n selects GOMAXPROCS. Call Close to stop them.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.pool = parallel.NewPool(n)
	}
}

// New returns an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{images: make(map[layer.Handle]image.Image)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close stops the workers started by WithWorkers.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// Register makes img available under h. Destinations must implement
// draw.Image; planar YUV sources are *image.YCbCr.
func (e *Engine) Register(h layer.Handle, img image.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.images[h] = img
}

// Unregister forgets h.
func (e *Engine) Unregister(h layer.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.images, h)
}

// Image returns the image registered under h.
func (e *Engine) Image(h layer.Handle) (image.Image, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	img, ok := e.images[h]
	return img, ok
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Submit executes entries in order. Every handle must be registered.
// With workers, runs of entries sharing a clip rectangle execute
// concurrently with each other; the planner emits one such run per
// subregion and subregions never overlap.
func (e *Engine) Submit(ctx context.Context, entries []blit.Entry, handles []layer.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range handles {
		if _, ok := e.images[h]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
		}
	}
	var err error
	if e.pool != nil {
		err = e.runParallel(ctx, entries)
	} else {
		err = e.run(ctx, entries, 0)
	}
	if err != nil {
		return err
	}

	pixels := 0
	for i := range entries {
		pixels += entries[i].Area()
	}
	e.stats.Submits++
	e.stats.Entries += len(entries)
	e.stats.Pixels += pixels
	hlog.Logger().Debug("softblit: submitted", "entries", len(entries), "pixels", pixels)
	return nil
}

// run executes entries sequentially; base is the index of entries[0] in
// the submission.
func (e *Engine) run(ctx context.Context, entries []blit.Entry, base int) error {
	for i := range entries {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := e.exec(&entries[i]); err != nil {
			return fmt.Errorf("softblit: entry %d (%s): %w", base+i, entries[i].String(), err)
		}
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, entries []blit.Entry) error {
	var jobs []func()
	var errs []error
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].Clip == entries[start].Clip {
			end++
		}
		k := len(errs)
		errs = append(errs, nil)
		chunk, base := entries[start:end], start
		jobs = append(jobs, func() {
			errs[k] = e.run(ctx, chunk, base)
		})
		start = end
	}
	e.pool.Run(jobs)
	return errors.Join(errs...)
}

func (e *Engine) lookup(s blit.Surface) (image.Image, error) {
	img, ok := e.images[s.Handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, s.Handle)
	}
	return img, nil
}

func (e *Engine) exec(en *blit.Entry) error {
	img, err := e.lookup(en.Dst)
	if err != nil {
		return err
	}
	dst, err := clipped(img, en.Clip)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}

	switch en.Op {
	case blit.OpClear:
		draw.Draw(dst, dst.Bounds(), image.NewUniform(toColor(en.Color)), image.Point{}, draw.Src)
		return nil
	case blit.OpCopy:
		return e.sample(dst, en.Src1, en.Src1Rect, en.DstRect, en.Src1Transform.Compose(en.DstTransform), draw.Src)
	default:
		if en.Merged() {
			if err := e.sample(dst, en.Src2, en.Src2Rect, en.DstRect, en.Src2Transform, draw.Src); err != nil {
				return err
			}
		}
		return e.sample(dst, en.Src1, en.Src1Rect, en.DstRect, en.Src1Transform.Compose(en.DstTransform), draw.Over)
	}
}

// sample maps sr of the source onto dr through t, writing only within
// dst's bounds.
func (e *Engine) sample(dst draw.Image, s blit.Surface, sr, dr image.Rectangle, t geom.Transform, op draw.Op) error {
	src, err := e.lookup(s)
	if err != nil {
		return err
	}
	if sr.Empty() || dr.Empty() {
		return nil
	}
	w, h := sr.Dx(), sr.Dy()
	if t.SwapsAxes() {
		w, h = h, w
	}
	var interp draw.Interpolator = draw.NearestNeighbor
	if w != dr.Dx() || h != dr.Dy() {
		interp = draw.ApproxBiLinear
	}
	m := geom.Fit(sr, dr, t)
	back := geom.Translate(float64(sr.Min.X-dr.Min.X), float64(sr.Min.Y-dr.Min.Y))
	if m.Then(back).IsIdentity() {
		// Unscaled and unrotated: a plain copy.
		draw.Draw(dst, dr, src, sr.Min, op)
		return nil
	}
	interp.Transform(dst, m.Aff3(), src, sr, op, nil)
	return nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// clipped returns the part of img inside clip as a draw.Image, or nil if
// nothing is left.
func clipped(img image.Image, clip image.Rectangle) (draw.Image, error) {
	d, ok := img.(draw.Image)
	if !ok {
		return nil, ErrNotWritable
	}
	r := clip.Intersect(img.Bounds())
	if r.Empty() {
		return nil, nil
	}
	if r == img.Bounds() {
		return d, nil
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, ErrNotWritable
	}
	sub, ok := si.SubImage(r).(draw.Image)
	if !ok {
		return nil, ErrNotWritable
	}
	return sub, nil
}

// toColor converts a straight-alpha colour with components in [0, 1].
func toColor(c gputypes.Color) color.Color {
	q := func(v float64) uint16 {
		return uint16(min(max(v, 0), 1)*0xffff + 0.5)
	}
	return color.NRGBA64{R: q(c.R), G: q(c.G), B: q(c.B), A: q(c.A)}
}
