// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softblit

import (
	"image"

	"github.com/gogpu/hwc/layer"
)

// Alloc returns a buffer description and a matching image for a w x h
// buffer in format f. RGB formats are backed by *image.RGBA, packed and
// planar YUV by *image.YCbCr.
func Alloc(h layer.Handle, w, ht int, f layer.Format) (layer.Buffer, image.Image) {
	r := image.Rect(0, 0, w, ht)
	b := layer.Buffer{Handle: h, Width: w, Height: ht, Format: f}
	switch f {
	case layer.FormatNV12, layer.FormatYV12:
		b.Stride = w
		return b, image.NewYCbCr(r, image.YCbCrSubsampleRatio420)
	case layer.FormatYUYV422:
		b.Stride = 2 * w
		return b, image.NewYCbCr(r, image.YCbCrSubsampleRatio422)
	default:
		b.Stride = w * max(f.BitsPerPixel()/8, 4)
		return b, image.NewRGBA(r)
	}
}

// AllocInto allocates a buffer like Alloc and registers its image with e.
func (e *Engine) AllocInto(h layer.Handle, w, ht int, f layer.Format) (layer.Buffer, image.Image) {
	b, img := Alloc(h, w, ht, f)
	e.Register(h, img)
	return b, img
}
