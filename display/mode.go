// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"errors"
	"fmt"
)

// ErrNoMode is returned when no mode of a display can show the content
// within the scaler limits.
var ErrNoMode = errors.New("display: no usable mode")

// DefaultRefreshMilliHz is the assumed refresh rate of the source content.
const DefaultRefreshMilliHz = 60000

// Mode is one timing offered by a display.
type Mode struct {
	Name           string `json:"name,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	RefreshMilliHz int    `json:"refresh_millihz"`
	PixelClockKHz  int    `json:"pixel_clock_khz"`

	// Physical size of the visible area. Zero means square pixels.
	PhysWidthMM  int `json:"phys_width_mm,omitempty"`
	PhysHeightMM int `json:"phys_height_mm,omitempty"`
}

// Valid reports whether the mode has a usable size.
func (m Mode) Valid() bool {
	return m.Width > 0 && m.Height > 0
}

// PixelAspect returns the width of one pixel relative to its height.
func (m Mode) PixelAspect() float64 {
	if m.PhysWidthMM <= 0 || m.PhysHeightMM <= 0 || !m.Valid() {
		return 1
	}
	return float64(m.PhysWidthMM*m.Height) / float64(m.PhysHeightMM*m.Width)
}

// String returns a description such as "1280x720@60.00".
func (m Mode) String() string {
	s := fmt.Sprintf("%dx%d@%.2f", m.Width, m.Height, float64(m.RefreshMilliHz)/1000)
	if m.Name != "" {
		s = m.Name + " " + s
	}
	return s
}
