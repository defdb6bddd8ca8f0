// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/hotplug"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
)

// Option configures a Planner during creation.
//
// Example:
//
//	p, err := hwc.New(backend, engine,
//	    hwc.WithScreen(1280, 720),
//	    hwc.WithLimits(limits),
//	)
type Option func(*config)

// config holds the Planner configuration.
type config struct {
	limits           overlay.Limits
	slots            []overlay.SlotCaps
	width, height    int
	pixelClockKHz    int
	framebuffers     []layer.Buffer
	memory           display.ModeMemory
	sourceRefresh    int
	secondaryFormats layer.FormatSet
	clearColor       gputypes.Color

	recompose func()
	vsync     func(hotplug.VsyncTick)
}

func defaultConfig() config {
	return config{
		limits:        overlay.DefaultLimits(),
		slots:         overlay.DefaultSlots(),
		sourceRefresh: display.DefaultRefreshMilliHz,
		secondaryFormats: layer.NewFormatSet(
			layer.FormatRGBA8888, layer.FormatRGBX8888,
			layer.FormatRGB565, layer.FormatYUYV422, layer.FormatNV12,
		),
		clearColor: gputypes.ColorTransparent,
	}
}

// fallbackFormat is the format of the fallback framebuffer.
func (c *config) fallbackFormat() layer.Format {
	if len(c.framebuffers) > 0 {
		return c.framebuffers[0].Format
	}
	return layer.FormatRGBA8888
}

// WithLimits sets the hardware calibration values.
func WithLimits(lim overlay.Limits) Option {
	return func(c *config) {
		c.limits = lim
	}
}

// WithSlots sets the overlay pipelines, in hardware index order.
func WithSlots(slots ...overlay.SlotCaps) Option {
	return func(c *config) {
		c.slots = slices.Clone(slots)
	}
}

// WithScreen sets the primary screen size in pixels. It is required.
func WithScreen(width, height int) Option {
	return func(c *config) {
		c.width, c.height = width, height
	}
}

// WithPixelClock sets the primary output pixel clock in kHz, enabling the
// horizontal scaler bandwidth check. Zero disables it.
func WithPixelClock(kHz int) Option {
	return func(c *config) {
		c.pixelClockKHz = kHz
	}
}

// WithFramebuffers sets the fallback framebuffer ring. The blit engine
// composes into one framebuffer per frame, cycling in order; the ring
// length is the damage pipeline depth. Without framebuffers the fallback
// plane is left to the GPU (see Plan.GPULayers).
func WithFramebuffers(bufs ...layer.Buffer) Option {
	return func(c *config) {
		c.framebuffers = slices.Clone(bufs)
	}
}

// WithModeMemory remembers the mode chosen per external display.
func WithModeMemory(m display.ModeMemory) Option {
	return func(c *config) {
		c.memory = m
	}
}

// WithSourceRefresh sets the refresh rate of the primary content in mHz,
// used to rank external display modes.
func WithSourceRefresh(milliHz int) Option {
	return func(c *config) {
		c.sourceRefresh = milliHz
	}
}

// WithSecondaryFormats sets the formats the secondary output shows with
// the correct colour order.
func WithSecondaryFormats(fs layer.FormatSet) Option {
	return func(c *config) {
		c.secondaryFormats = fs
	}
}

// WithClearColor sets the framebuffer background, shown where no layer is
// composed. Transparent black by default. Overlay holes and clear-beneath
// areas stay transparent whatever the colour.
func WithClearColor(col gputypes.Color) Option {
	return func(c *config) {
		c.clearColor = col
	}
}

// WithRecomposeFunc sets the hook asking the window system for a new frame.
// It is called from the event goroutine or from Submit and must not call
// back into the Planner.
func WithRecomposeFunc(fn func()) Option {
	return func(c *config) {
		c.recompose = fn
	}
}

// WithVsyncFunc forwards vsync events received by the Planner.
func WithVsyncFunc(fn func(hotplug.VsyncTick)) Option {
	return func(c *config) {
		c.vsync = fn
	}
}
