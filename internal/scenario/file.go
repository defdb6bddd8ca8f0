// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package scenario reads JSON scene files and steps them through a
// planner backed by the software blitter. It serves the hwcplan and
// hwcview tools.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
)

// ErrInvalid is returned for a malformed scene.
var ErrInvalid = errors.New("scenario: invalid scene")

// Rect is a rectangle written as [x0, y0, x1, y1].
type Rect [4]int

// Image returns r as an image.Rectangle.
func (r Rect) Image() image.Rectangle { return image.Rect(r[0], r[1], r[2], r[3]) }

// Size is a width and height.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Buffer is a client buffer filled with one colour.
type Buffer struct {
	Handle uint64 `json:"handle"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"`
	// Color is "#rrggbb" or "#rrggbbaa", straight alpha.
	Color  string `json:"color,omitempty"`
}

// Layer is one layer of a frame. Crop defaults to the whole buffer.
type Layer struct {
	ID       uint32   `json:"id"`
	Buffer   uint64   `json:"buffer,omitempty"`
	Crop     *Rect    `json:"crop,omitempty"`
	Frame    Rect     `json:"frame"`
	Rotation int      `json:"rotation,omitempty"`
	Mirror   bool     `json:"mirror,omitempty"`
	Blend    string   `json:"blend,omitempty"`
	Z        int      `json:"z"`
	Flags    []string `json:"flags,omitempty"`
}

// Frame is one frame plus the display events delivered before it. Attach
// and Detach refer to the external display.
type Frame struct {
	Attach          bool    `json:"attach,omitempty"`
	Detach          bool    `json:"detach,omitempty"`
	Clone           *string `json:"clone,omitempty"`
	GeometryChanged bool    `json:"geometry_changed,omitempty"`
	Layers          []Layer `json:"layers"`
}

// External describes the secondary display.
type External struct {
	Name     string         `json:"name"`
	Modes    []display.Mode `json:"modes"`
	Clone    string         `json:"clone,omitempty"`
	Rotation int            `json:"rotation,omitempty"`
	Mirror   bool           `json:"mirror,omitempty"`

	// Hotplug leaves the display detached until a frame attaches it.
	Hotplug bool `json:"hotplug,omitempty"`

	// FailSetMode makes every mode switch fail.
	FailSetMode bool `json:"fail_set_mode,omitempty"`
}

// Tuning overrides calibration values of overlay.DefaultLimits. Zero
// fields keep the default.
type Tuning struct {
	MaxDecimation int     `json:"max_decimation,omitempty"`
	MaxDownscale  float64 `json:"max_downscale,omitempty"`
	MaxUpscale    float64 `json:"max_upscale,omitempty"`
	MaxBlits      int     `json:"max_blits,omitempty"`
}

// Limits returns the default limits with t applied.
func (t *Tuning) Limits() overlay.Limits {
	lim := overlay.DefaultLimits()
	if t == nil {
		return lim
	}
	if t.MaxDecimation > 0 {
		lim.MaxDecimation = t.MaxDecimation
	}
	if t.MaxDownscale > 0 {
		lim.MaxDownscale = t.MaxDownscale
	}
	if t.MaxUpscale > 0 {
		lim.MaxUpscale = t.MaxUpscale
	}
	if t.MaxBlits > 0 {
		lim.MaxBlits = t.MaxBlits
	}
	return lim
}

// File is a scene.
type File struct {
	Name          string    `json:"name,omitempty"`
	Screen        Size      `json:"screen"`
	PixelClockKHz int       `json:"pixel_clock_khz,omitempty"`
	Limits        *Tuning   `json:"limits,omitempty"`
	External      *External `json:"external,omitempty"`
	Buffers       []Buffer  `json:"buffers"`
	Frames        []Frame   `json:"frames"`

	// Framebuffers is the fallback ring size: 0 selects two, a negative
	// value none, leaving the fallback plane to the GPU.
	Framebuffers int `json:"framebuffers,omitempty"`
}

// Load decodes and validates a scene.
func Load(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile loads the scene stored at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer fh.Close()
	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = path
	}
	return f, nil
}

// Validate checks references and names.
func (f *File) Validate() error {
	if f.Screen.Width <= 0 || f.Screen.Height <= 0 {
		return fmt.Errorf("%w: screen %dx%d", ErrInvalid, f.Screen.Width, f.Screen.Height)
	}
	bufs := make(map[uint64]bool, len(f.Buffers))
	for _, b := range f.Buffers {
		if b.Handle == 0 || bufs[b.Handle] {
			return fmt.Errorf("%w: buffer handle %d zero or duplicated", ErrInvalid, b.Handle)
		}
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("%w: buffer %d size %dx%d", ErrInvalid, b.Handle, b.Width, b.Height)
		}
		if _, err := b.format(); err != nil {
			return err
		}
		if _, err := ParseColor(b.Color); err != nil {
			return err
		}
		bufs[b.Handle] = true
	}
	if e := f.External; e != nil {
		if e.Name == "" {
			return fmt.Errorf("%w: external display without a name", ErrInvalid)
		}
		if _, err := ParseClone(e.Clone); err != nil {
			return err
		}
		if _, err := transform(e.Rotation, e.Mirror); err != nil {
			return err
		}
	}
	for i, fr := range f.Frames {
		if (fr.Attach || fr.Detach) && f.External == nil {
			return fmt.Errorf("%w: frame %d: hotplug without an external display", ErrInvalid, i)
		}
		if fr.Clone != nil {
			if _, err := ParseClone(*fr.Clone); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
		}
		for _, l := range fr.Layers {
			if l.Buffer != 0 && !bufs[l.Buffer] {
				return fmt.Errorf("%w: frame %d layer %d: unknown buffer %d", ErrInvalid, i, l.ID, l.Buffer)
			}
			if _, err := l.convert(nil); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
		}
	}
	return nil
}

func (b *Buffer) format() (layer.Format, error) {
	if b.Format == "" {
		return layer.FormatRGBA8888, nil
	}
	f, ok := layer.ParseFormat(b.Format)
	if !ok {
		return 0, fmt.Errorf("%w: buffer %d: format %q", ErrInvalid, b.Handle, b.Format)
	}
	return f, nil
}

var flagNames = map[string]layer.Flags{
	"protected":     layer.FlagProtected,
	"clear_beneath": layer.FlagClearBeneath,
	"skip":          layer.FlagSkip,
	"dockable":      layer.FlagDockable,
}

// convert builds the planner layer; bufs resolves buffer handles and may be
// nil when only validating.
func (l *Layer) convert(bufs map[layer.Handle]*layer.Buffer) (layer.Layer, error) {
	if l.ID == uint32(layer.BackgroundID) {
		return layer.Layer{}, fmt.Errorf("%w: layer id %d is reserved", ErrInvalid, l.ID)
	}
	t, err := transform(l.Rotation, l.Mirror)
	if err != nil {
		return layer.Layer{}, fmt.Errorf("layer %d: %w", l.ID, err)
	}
	blend, ok := layer.ParseBlend(l.Blend)
	if !ok {
		return layer.Layer{}, fmt.Errorf("%w: layer %d: blend %q", ErrInvalid, l.ID, l.Blend)
	}
	out := layer.Layer{
		ID:        layer.ID(l.ID),
		Frame:     l.Frame.Image(),
		Transform: t,
		Blend:     blend,
		Z:         l.Z,
	}
	for _, name := range l.Flags {
		fl, ok := flagNames[name]
		if !ok {
			return layer.Layer{}, fmt.Errorf("%w: layer %d: flag %q", ErrInvalid, l.ID, name)
		}
		out.Flags |= fl
	}
	if buf := bufs[layer.Handle(l.Buffer)]; buf != nil {
		out.Buffer = buf
		out.Crop = buf.Bounds()
	}
	if l.Crop != nil {
		out.Crop = l.Crop.Image()
	}
	return out, nil
}

func transform(deg int, mirror bool) (geom.Transform, error) {
	r, ok := geom.RotationFromDegrees(deg)
	if !ok {
		return geom.Transform{}, fmt.Errorf("%w: rotation %d", ErrInvalid, deg)
	}
	return geom.Transform{Rotation: r, Mirror: mirror}, nil
}

// ParseClone parses "off", "mirror" or "dock". The empty string is off.
func ParseClone(s string) (overlay.CloneMode, error) {
	switch s {
	case "", "off":
		return overlay.CloneOff, nil
	case "mirror":
		return overlay.CloneMirror, nil
	case "dock":
		return overlay.CloneDock, nil
	}
	return overlay.CloneOff, fmt.Errorf("%w: clone mode %q", ErrInvalid, s)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa" into a premultiplied colour.
// The empty string is opaque white.
func ParseColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: colour %q", ErrInvalid, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: colour %q", ErrInvalid, s)
	}
	nc := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(nc).(color.RGBA), nil
}
