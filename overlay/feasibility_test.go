// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"image"
	"testing"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/layer"
)

func testLayer(id layer.ID, f layer.Format, crop, frame image.Rectangle) layer.Layer {
	return layer.Layer{
		ID: id,
		Buffer: &layer.Buffer{
			Handle: layer.Handle(100 + id),
			Width:  crop.Max.X,
			Height: crop.Max.Y,
			Stride: crop.Max.X * 4,
			Format: f,
		},
		Crop:  crop,
		Frame: frame,
		Z:     int(id),
	}
}

func TestCheck(t *testing.T) {
	lim := DefaultLimits()
	full := image.Rect(0, 0, 800, 480)

	tests := []struct {
		name   string
		mutate func(l *layer.Layer)
		clock  int
		want   Reason
	}{
		{name: "unscaled rgba", want: 0},
		{name: "skip", mutate: func(l *layer.Layer) { l.Flags |= layer.FlagSkip }, want: ReasonSkip},
		{name: "no buffer", mutate: func(l *layer.Layer) { l.Buffer = nil }, want: ReasonNoBuffer},
		{name: "format", mutate: func(l *layer.Layer) { l.Buffer.Format = layer.FormatRGB888 }, want: ReasonFormat},
		{name: "rgb rotation", mutate: func(l *layer.Layer) {
			l.Transform = geom.Transform{Rotation: geom.Rotate90}
			l.Frame = image.Rect(0, 0, 480, 800)
		}, want: ReasonRotation},
		{name: "planar rotation", mutate: func(l *layer.Layer) {
			l.Buffer.Format = layer.FormatNV12
			l.Transform = geom.Transform{Rotation: geom.Rotate90}
			l.Frame = image.Rect(0, 0, 480, 800)
		}, want: 0},
		{name: "memory", mutate: func(l *layer.Layer) {
			l.Buffer.Width, l.Buffer.Height = 4096, 4096
		}, want: ReasonMemory},
		{name: "empty frame", mutate: func(l *layer.Layer) { l.Frame = image.Rectangle{} }, want: ReasonEmpty},
		{name: "narrow output", mutate: func(l *layer.Layer) {
			l.Crop = image.Rect(0, 0, 8, 8)
			l.Frame = image.Rect(0, 0, 8, 8)
		}, want: ReasonOutputWidth},
		{name: "min height", mutate: func(l *layer.Layer) {
			l.Crop = image.Rect(0, 0, 400, 1000)
			l.Buffer.Height = 1000
			l.Frame = image.Rect(0, 0, 400, 200)
		}, want: ReasonMinHeight},
		{name: "upscale", mutate: func(l *layer.Layer) {
			l.Crop = image.Rect(0, 0, 40, 40)
			l.Frame = image.Rect(0, 0, 400, 400)
		}, want: ReasonUpscale},
		{name: "pixel clock", mutate: func(l *layer.Layer) {
			l.Crop = image.Rect(0, 0, 1920, 1080)
			l.Buffer.Width, l.Buffer.Height = 1920, 1080
			l.Frame = image.Rect(0, 0, 400, 300)
		}, clock: 148500, want: ReasonPixelClock},
		{name: "pixel clock unknown", mutate: func(l *layer.Layer) {
			l.Crop = image.Rect(0, 0, 1920, 1080)
			l.Buffer.Width, l.Buffer.Height = 1920, 1080
			l.Frame = image.Rect(0, 0, 400, 300)
		}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayer(1, layer.FormatRGBA8888, full, full)
			if tt.mutate != nil {
				tt.mutate(&l)
			}
			v := Check(&l, &lim, tt.clock)
			if v.Reasons != tt.want {
				t.Errorf("Reasons = %v, want %v", v.Reasons, tt.want)
			}
			if v.Eligible != (tt.want == 0) {
				t.Errorf("Eligible = %v, want %v", v.Eligible, tt.want == 0)
			}
		})
	}
}

func TestCheckSmallSourceSnapping(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxDecimation = 1
	// 60 -> 40 is a 1.5 ratio, snapped to 2 for small sources; the clock
	// bound is 1.7.
	l := testLayer(1, layer.FormatRGBA8888, image.Rect(0, 0, 60, 40), image.Rect(0, 0, 40, 40))
	if v := Check(&l, &lim, 100000); v.Reasons != ReasonPixelClock {
		t.Errorf("small source: Reasons = %v, want pixel-clock", v.Reasons)
	}

	lim.SmallSourceWidth = 0
	if v := Check(&l, &lim, 100000); !v.Eligible {
		t.Errorf("without snapping: Reasons = %v, want eligible", v.Reasons)
	}
}

func TestCheckDecimation(t *testing.T) {
	lim := DefaultLimits()
	l := testLayer(1, layer.FormatRGBA8888, image.Rect(0, 0, 1000, 200), image.Rect(0, 0, 200, 200))
	v := Check(&l, &lim, 0)
	if !v.Eligible || !v.NeedsDecimation || !v.Scaled {
		t.Errorf("Check = %+v, want eligible scaled layer needing decimation", v)
	}

	lim.MaxDecimation = 1
	if v := Check(&l, &lim, 0); v.Reasons != ReasonDownscale {
		t.Errorf("without decimation: Reasons = %v, want downscale", v.Reasons)
	}
}

func TestCheckPure(t *testing.T) {
	lim := DefaultLimits()
	l := testLayer(3, layer.FormatNV12, image.Rect(0, 0, 1280, 720), image.Rect(10, 10, 650, 370))
	a := Check(&l, &lim, 148500)
	b := Check(&l, &lim, 148500)
	if a != b {
		t.Errorf("Check not deterministic: %+v vs %+v", a, b)
	}
}

func TestSustainable(t *testing.T) {
	lim := DefaultLimits()
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH int
		clock                  int
		want                   bool
	}{
		{"same size", 1280, 720, 1280, 720, 74250, true},
		{"half size", 1280, 720, 640, 360, 74250, true},
		{"vertical beyond decimation", 1920, 1080, 640, 60, 0, false},
		{"slow scaler", 1920, 1080, 720, 480, 297000, false},
		{"empty dst", 100, 100, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lim.Sustainable(tt.srcW, tt.srcH, tt.dstW, tt.dstH, tt.clock); got != tt.want {
				t.Errorf("Sustainable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReasonString(t *testing.T) {
	if got := (ReasonFormat | ReasonMemory).String(); got != "format|memory" {
		t.Errorf("String = %q", got)
	}
	if got := Reason(0).String(); got != "none" {
		t.Errorf("String = %q", got)
	}
}
