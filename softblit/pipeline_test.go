// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softblit_test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
	"github.com/gogpu/hwc/softblit"
)

type nullDisplay struct{}

func (nullDisplay) Modes(context.Context, overlay.Output) ([]display.Mode, error) { return nil, nil }
func (nullDisplay) SetMode(context.Context, overlay.Output, display.Mode) error   { return nil }
func (nullDisplay) Commit(context.Context, *hwc.Submission) error                 { return nil }

func TestPlannerComposesPixels(t *testing.T) {
	tests := []struct {
		name string
		opts []softblit.Option
	}{
		{"sequential", nil},
		{"workers", []softblit.Option{softblit.WithWorkers(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := softblit.New(tt.opts...)
			t.Cleanup(e.Close)
			composePixels(t, e)
		})
	}
}

func composePixels(t *testing.T, e *softblit.Engine) {
	const w, h = 120, 60
	fb0, _ := e.AllocInto(900, w, h, layer.FormatRGBA8888)
	fb1, _ := e.AllocInto(901, w, h, layer.FormatRGBA8888)

	colors := []color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}}
	var layers []layer.Layer
	for i, c := range colors {
		buf, img := e.AllocInto(layer.Handle(10+i), 40, 60, layer.FormatRGBA8888)
		draw.Draw(img.(draw.Image), img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		layers = append(layers, layer.Layer{
			ID:     layer.ID(i + 1),
			Buffer: &buf,
			Crop:   image.Rect(0, 0, 40, 60),
			Frame:  image.Rect(40*i, 0, 40*(i+1), 60),
			Z:      i,
			Flags:  layer.FlagSkip,
		})
	}

	p, err := hwc.New(nullDisplay{}, e, hwc.WithScreen(w, h), hwc.WithFramebuffers(fb0, fb1))
	if err != nil {
		t.Fatal(err)
	}
	plan, err := p.Plan(hwc.Frame{Layers: layers})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	img, _ := e.Image(900)
	for i, c := range colors {
		got := color.RGBAModel.Convert(img.At(40*i+20, 30)).(color.RGBA)
		if got != c {
			t.Errorf("third %d = %v, want %v", i, got, c)
		}
	}

	// Move the blue layer left over the green one; the vacated strip must
	// be cleared in the next framebuffer.
	layers[2].Frame = image.Rect(60, 0, 100, 60)
	plan, err = p.Plan(hwc.Frame{Layers: layers})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(context.Background(), plan); err != nil {
		t.Fatal(err)
	}
	img, _ = e.Image(901)
	checks := []struct {
		x    int
		want color.RGBA
	}{
		{20, colors[0]},
		{50, colors[1]},
		{70, colors[2]},
		{110, color.RGBA{}},
	}
	for _, c := range checks {
		if got := color.RGBAModel.Convert(img.At(c.x, 30)).(color.RGBA); got != c.want {
			t.Errorf("x=%d: %v, want %v", c.x, got, c.want)
		}
	}
}

func TestClearColorUnderTranslucentLayer(t *testing.T) {
	const w, h = 40, 20
	e := softblit.New()
	t.Cleanup(e.Close)
	fb0, _ := e.AllocInto(900, w, h, layer.FormatRGBA8888)
	fb1, _ := e.AllocInto(901, w, h, layer.FormatRGBA8888)

	buf, img := e.AllocInto(10, 20, 20, layer.FormatRGBA8888)
	halfRed := color.RGBA{R: 128, A: 128}
	draw.Draw(img.(draw.Image), img.Bounds(), image.NewUniform(halfRed), image.Point{}, draw.Src)
	l := layer.Layer{
		ID:     1,
		Buffer: &buf,
		Crop:   image.Rect(0, 0, 20, 20),
		Frame:  image.Rect(0, 0, 20, 20),
		Blend:  layer.BlendPremultiplied,
		Flags:  layer.FlagSkip,
	}

	p, err := hwc.New(nullDisplay{}, e,
		hwc.WithScreen(w, h),
		hwc.WithFramebuffers(fb0, fb1),
		hwc.WithClearColor(gputypes.ColorBlack))
	if err != nil {
		t.Fatal(err)
	}
	plan, err := p.Plan(hwc.Frame{Layers: []layer.Layer{l}})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	out, _ := e.Image(900)
	checks := []struct {
		x    int
		want color.RGBA
	}{
		{10, color.RGBA{R: 128, A: 255}},
		{30, color.RGBA{A: 255}},
	}
	for _, c := range checks {
		if got := color.RGBAModel.Convert(out.At(c.x, 10)).(color.RGBA); got != c.want {
			t.Errorf("x=%d: %v, want %v", c.x, got, c.want)
		}
	}
}
