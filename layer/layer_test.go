// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/geom"
)

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		f       Format
		yuv     bool
		planar  bool
		alpha   bool
		bpp     int
		gpu     gputypes.TextureFormat
		wantStr string
	}{
		{FormatRGBA8888, false, false, true, 32, gputypes.TextureFormatRGBA8Unorm, "RGBA8888"},
		{FormatBGRX8888, false, false, false, 32, gputypes.TextureFormatBGRA8Unorm, "BGRX8888"},
		{FormatRGB565, false, false, false, 16, gputypes.TextureFormatUndefined, "RGB565"},
		{FormatYUYV422, true, false, false, 16, gputypes.TextureFormatUndefined, "YUYV422"},
		{FormatNV12, true, true, false, 12, gputypes.TextureFormatUndefined, "NV12"},
		{FormatYV12, true, true, false, 12, gputypes.TextureFormatUndefined, "YV12"},
	}
	for _, tt := range tests {
		t.Run(tt.wantStr, func(t *testing.T) {
			if tt.f.IsYUV() != tt.yuv {
				t.Errorf("IsYUV() = %v, want %v", tt.f.IsYUV(), tt.yuv)
			}
			if tt.f.IsPlanarYUV() != tt.planar {
				t.Errorf("IsPlanarYUV() = %v, want %v", tt.f.IsPlanarYUV(), tt.planar)
			}
			if tt.f.HasAlpha() != tt.alpha {
				t.Errorf("HasAlpha() = %v, want %v", tt.f.HasAlpha(), tt.alpha)
			}
			if tt.f.BitsPerPixel() != tt.bpp {
				t.Errorf("BitsPerPixel() = %d, want %d", tt.f.BitsPerPixel(), tt.bpp)
			}
			if tt.f.GPUFormat() != tt.gpu {
				t.Errorf("GPUFormat() = %v, want %v", tt.f.GPUFormat(), tt.gpu)
			}
			if tt.f.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", tt.f.String(), tt.wantStr)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatNV12.Bytes(1920, 1080); got != 1920*1080*3/2 {
		t.Errorf("NV12 1080p bytes = %d, want %d", got, 1920*1080*3/2)
	}
	if got := FormatRGBA8888.Bytes(10, 10); got != 400 {
		t.Errorf("RGBA 10x10 bytes = %d, want 400", got)
	}
}

func TestParse(t *testing.T) {
	if f, ok := ParseFormat("nv12"); !ok || f != FormatNV12 {
		t.Errorf("ParseFormat(nv12) = %v, %v", f, ok)
	}
	if _, ok := ParseFormat("unknown"); ok {
		t.Error("ParseFormat accepted the unknown format")
	}
	if b, ok := ParseBlend("coverage"); !ok || b != BlendCoverage {
		t.Errorf("ParseBlend(coverage) = %v, %v", b, ok)
	}
	if b, ok := ParseBlend(""); !ok || b != BlendNone {
		t.Errorf("ParseBlend(\"\") = %v, %v", b, ok)
	}
	if _, ok := ParseBlend("add"); ok {
		t.Error("ParseBlend accepted add")
	}
}

func TestFormatSet(t *testing.T) {
	s := NewFormatSet(FormatRGBA8888, FormatNV12)
	if !s.Has(FormatNV12) || !s.Has(FormatRGBA8888) {
		t.Error("set is missing a member")
	}
	if s.Has(FormatYV12) {
		t.Error("set reports a format it does not contain")
	}
	if !s.With(FormatYV12).Has(FormatYV12) {
		t.Error("With did not add the format")
	}
}

func TestLayerScaled(t *testing.T) {
	buf := &Buffer{Handle: 1, Width: 200, Height: 100, Format: FormatRGBA8888}
	l := Layer{Buffer: buf, Crop: image.Rect(0, 0, 200, 100), Frame: image.Rect(0, 0, 200, 100)}
	if l.Scaled() {
		t.Error("1:1 layer reported as scaled")
	}
	if l.ScaleDeviation() != 0 {
		t.Errorf("ScaleDeviation() = %v, want 0", l.ScaleDeviation())
	}

	l.Transform = geom.Transform{Rotation: geom.Rotate90}
	if !l.Scaled() {
		t.Error("rotated layer into unrotated frame should be scaled")
	}
	l.Frame = image.Rect(0, 0, 100, 200)
	if l.Scaled() {
		t.Error("rotated layer into swapped frame should not be scaled")
	}

	l.Transform = geom.Transform{}
	l.Frame = image.Rect(0, 0, 100, 50)
	if got := l.ScaleDeviation(); got != 1 {
		t.Errorf("2x downscale ScaleDeviation() = %v, want 1", got)
	}
}

func TestLayerSourceRect(t *testing.T) {
	buf := &Buffer{Handle: 1, Width: 400, Height: 200, Format: FormatRGBA8888}
	tests := []struct {
		name string
		l    Layer
		dst  image.Rectangle
		want image.Rectangle
	}{
		{
			name: "unscaled offset",
			l:    Layer{Buffer: buf, Crop: image.Rect(0, 0, 400, 200), Frame: image.Rect(100, 100, 500, 300)},
			dst:  image.Rect(150, 100, 250, 300),
			want: image.Rect(50, 0, 150, 200),
		},
		{
			name: "2x downscale",
			l:    Layer{Buffer: buf, Crop: image.Rect(0, 0, 400, 200), Frame: image.Rect(0, 0, 200, 100)},
			dst:  image.Rect(100, 0, 200, 50),
			want: image.Rect(200, 0, 400, 100),
		},
		{
			name: "rotate 180",
			l: Layer{Buffer: buf, Crop: image.Rect(0, 0, 400, 200), Frame: image.Rect(0, 0, 400, 200),
				Transform: geom.Transform{Rotation: geom.Rotate180}},
			dst:  image.Rect(0, 0, 100, 200),
			want: image.Rect(300, 0, 400, 200),
		},
		{
			name: "empty",
			l:    Layer{Buffer: buf, Crop: image.Rect(0, 0, 400, 200), Frame: image.Rect(0, 0, 400, 200)},
			dst:  image.Rectangle{},
			want: image.Rectangle{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.l.SourceRect(tt.dst); got != tt.want {
				t.Errorf("SourceRect(%v) = %v, want %v", tt.dst, got, tt.want)
			}
		})
	}
}

func TestLayerContentEqual(t *testing.T) {
	a := Layer{ID: 1, Buffer: &Buffer{Handle: 7}, Crop: image.Rect(0, 0, 10, 10), Frame: image.Rect(0, 0, 10, 10)}
	b := a
	b.Frame = image.Rect(5, 5, 15, 15)
	if !a.ContentEqual(&b) {
		t.Error("moving a layer must not change its content")
	}
	b.Buffer = &Buffer{Handle: 8}
	if a.ContentEqual(&b) {
		t.Error("a new buffer handle is new content")
	}
	c := a
	c.Transform = geom.Transform{Mirror: true}
	if a.ContentEqual(&c) {
		t.Error("a new orientation is new content")
	}
}

func TestLayerNoBuffer(t *testing.T) {
	var l Layer
	if l.Format() != FormatUnknown || l.Handle() != 0 {
		t.Error("layer without buffer should report unknown format and zero handle")
	}
}

func TestBlendGPUBlend(t *testing.T) {
	if BlendPremultiplied.GPUBlend() != gputypes.BlendStatePremultiplied() {
		t.Error("premultiplied blend should map to BlendStatePremultiplied")
	}
	if BlendNone.GPUBlend() != gputypes.BlendStateReplace() {
		t.Error("opaque layers should replace")
	}
}
