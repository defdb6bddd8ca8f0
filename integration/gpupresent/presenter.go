// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpupresent shows a software-composed fallback framebuffer on a
// host GPU surface through gpucontext, uploading only the damaged part
// when the texture supports region updates.
package gpupresent

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/layer"
)

var (
	// ErrNoCreator is returned when the drawer has no texture creator.
	ErrNoCreator = errors.New("gpupresent: drawer has no texture creator")

	// ErrFormat is returned for a framebuffer format without an RGBA
	// texture equivalent.
	ErrFormat = errors.New("gpupresent: framebuffer format not presentable")
)

// Stats counts uploads.
type Stats struct {
	Creates int
	Regions int
	Full    int
	Bytes   int
}

// Presenter owns one texture mirroring the fallback plane. It is not safe
// for concurrent use.
type Presenter struct {
	tex  gpucontext.Texture
	size image.Point

	scratch []byte
	stats   Stats
}

// New returns a presenter without a texture; the first Present creates it.
func New() *Presenter {
	return &Presenter{}
}

// Stats returns the upload counters.
func (p *Presenter) Stats() Stats { return p.stats }

// Present uploads damage of img, the framebuffer described by fb, and
// draws the texture at (x, y). An empty damage skips the upload.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, fb layer.Buffer, img image.Image, damage image.Rectangle, x, y float32) error {
	if fb.Format.GPUFormat() == gputypes.TextureFormatUndefined {
		return fmt.Errorf("%w: %v", ErrFormat, fb.Format)
	}
	bounds := img.Bounds()
	if p.tex == nil || p.size != bounds.Size() {
		if err := p.create(dc, img); err != nil {
			return err
		}
	} else if r := damage.Intersect(bounds); !r.Empty() {
		if err := p.update(img, r); err != nil {
			return err
		}
	}
	return dc.DrawTexture(p.tex, x, y)
}

func (p *Presenter) create(dc gpucontext.TextureDrawer, img image.Image) error {
	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoCreator
	}
	b := img.Bounds()
	data := p.pack(img, b)
	tex, err := creator.NewTextureFromRGBA(b.Dx(), b.Dy(), data)
	if err != nil {
		return fmt.Errorf("gpupresent: create texture: %w", err)
	}
	// The fallback plane holds premultiplied pixels.
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(true)
	}
	p.Close()
	p.tex, p.size = tex, b.Size()
	p.stats.Creates++
	p.stats.Bytes += len(data)
	hlog.Logger().Debug("gpupresent: texture created", "size", p.size.String())
	return nil
}

func (p *Presenter) update(img image.Image, r image.Rectangle) error {
	if ru, ok := p.tex.(gpucontext.TextureRegionUpdater); ok {
		data := p.pack(img, r)
		origin := img.Bounds().Min
		if err := ru.UpdateRegion(r.Min.X-origin.X, r.Min.Y-origin.Y, r.Dx(), r.Dy(), data); err != nil {
			return fmt.Errorf("gpupresent: update region %v: %w", r, err)
		}
		p.stats.Regions++
		p.stats.Bytes += len(data)
		return nil
	}
	if u, ok := p.tex.(gpucontext.TextureUpdater); ok {
		data := p.pack(img, img.Bounds())
		if err := u.UpdateData(data); err != nil {
			return fmt.Errorf("gpupresent: update texture: %w", err)
		}
		p.stats.Full++
		p.stats.Bytes += len(data)
		return nil
	}
	// Immutable texture: nothing to do but leave it stale.
	hlog.Logger().Warn("gpupresent: texture cannot be updated")
	return nil
}

// pack returns the pixels of r as densely packed RGBA rows. The slice is
// reused across calls.
func (p *Presenter) pack(img image.Image, r image.Rectangle) []byte {
	n := r.Dx() * r.Dy() * 4
	if cap(p.scratch) < n {
		p.scratch = make([]byte, n)
	}
	buf := p.scratch[:n]
	if rgba, ok := img.(*image.RGBA); ok {
		row := r.Dx() * 4
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := rgba.PixOffset(r.Min.X, y)
			copy(buf[(y-r.Min.Y)*row:], rgba.Pix[off:off+row])
		}
		return buf
	}
	dst := &image.RGBA{Pix: buf, Stride: r.Dx() * 4, Rect: image.Rect(0, 0, r.Dx(), r.Dy())}
	draw.Draw(dst, dst.Rect, img, r.Min, draw.Src)
	return buf
}

// Close destroys the texture if it supports it.
func (p *Presenter) Close() {
	if d, ok := p.tex.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	p.tex = nil
}
