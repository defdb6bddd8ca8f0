// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Format is a buffer pixel format.
type Format uint8

// Pixel formats understood by the planner.
const (
	FormatUnknown Format = iota
	FormatRGBA8888
	FormatRGBX8888
	FormatBGRA8888
	FormatBGRX8888
	FormatRGB565
	FormatRGB888
	// FormatYUYV422 is packed 4:2:2; it is YUV but not planar.
	FormatYUYV422
	// FormatNV12 is planar 4:2:0 with an interleaved CbCr plane.
	FormatNV12
	// FormatYV12 is planar 4:2:0 with separate Cr and Cb planes.
	FormatYV12
)

var formatNames = [...]string{
	FormatUnknown:  "unknown",
	FormatRGBA8888: "RGBA8888",
	FormatRGBX8888: "RGBX8888",
	FormatBGRA8888: "BGRA8888",
	FormatBGRX8888: "BGRX8888",
	FormatRGB565:   "RGB565",
	FormatRGB888:   "RGB888",
	FormatYUYV422:  "YUYV422",
	FormatNV12:     "NV12",
	FormatYV12:     "YV12",
}

// String returns the conventional name of f.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat returns the format named name, as printed by String.
// Matching ignores case.
func ParseFormat(name string) (Format, bool) {
	for f, n := range formatNames {
		if f != int(FormatUnknown) && strings.EqualFold(n, name) {
			return Format(f), true
		}
	}
	return FormatUnknown, false
}

// IsYUV reports whether f carries luma/chroma samples.
func (f Format) IsYUV() bool {
	return f == FormatYUYV422 || f == FormatNV12 || f == FormatYV12
}

// IsPlanarYUV reports whether f stores luma and chroma in separate planes.
// Blit hardware cannot rotate planar sources.
func (f Format) IsPlanarYUV() bool {
	return f == FormatNV12 || f == FormatYV12
}

// HasAlpha reports whether f carries a meaningful alpha channel.
func (f Format) HasAlpha() bool {
	return f == FormatRGBA8888 || f == FormatBGRA8888
}

// BitsPerPixel returns the average storage cost of one pixel.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888, FormatBGRX8888:
		return 32
	case FormatRGB888:
		return 24
	case FormatRGB565, FormatYUYV422:
		return 16
	case FormatNV12, FormatYV12:
		return 12
	default:
		return 0
	}
}

// Bytes returns the storage needed for a w x h image in format f.
func (f Format) Bytes(w, h int) int {
	return (w*h*f.BitsPerPixel() + 7) / 8
}

// GPUFormat returns the texture format a GPU fallback renderer would sample
// f as. YUV and packed 16/24-bit formats have no direct equivalent and
// return gputypes.TextureFormatUndefined.
func (f Format) GPUFormat() gputypes.TextureFormat {
	switch f {
	case FormatRGBA8888, FormatRGBX8888:
		return gputypes.TextureFormatRGBA8Unorm
	case FormatBGRA8888, FormatBGRX8888:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatUndefined
	}
}

// FormatSet is a set of formats.
type FormatSet uint32

// NewFormatSet returns a set containing fs.
func NewFormatSet(fs ...Format) FormatSet {
	var s FormatSet
	for _, f := range fs {
		s |= 1 << f
	}
	return s
}

// Has reports whether f is in s.
func (s FormatSet) Has(f Format) bool {
	return s&(1<<f) != 0
}

// With returns s with f added.
func (s FormatSet) With(f Format) FormatSet {
	return s | 1<<f
}
