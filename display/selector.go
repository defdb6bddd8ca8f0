// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"fmt"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/overlay"
)

// Content describes what the secondary output has to show.
type Content struct {
	// Width and Height of the source box in primary coordinates.
	Width, Height int
	// Transform is the output-level rotation and mirror.
	Transform geom.Transform
	// RefreshMilliHz is the assumed source refresh rate.
	RefreshMilliHz int
}

// oriented returns the content size after the output transform.
func (c Content) oriented() (w, h int) {
	if c.Transform.SwapsAxes() {
		return c.Height, c.Width
	}
	return c.Width, c.Height
}

// Score ranks a mode for some content. Fields are listed in priority
// order; each one only breaks ties of the fields above it.
type Score struct {
	// UpscaleOK is set when the content is shown at least at its own size,
	// within 1%.
	UpscaleOK bool
	// ScaleDelta is the total edge length difference between the content
	// and its target box.
	ScaleDelta int
	// UnusedArea is the number of mode pixels outside the target box.
	UnusedArea int
	// RefreshAtLeastSource is set when the mode refreshes at least as fast
	// as the source.
	RefreshAtLeastSource bool
	// RefreshDelta is the refresh rate difference in mHz.
	RefreshDelta int
}

// Compare returns a negative number when s ranks before o, a positive one
// when it ranks after, and zero on a tie.
func (s Score) Compare(o Score) int {
	if s.UpscaleOK != o.UpscaleOK {
		return boolRank(s.UpscaleOK)
	}
	if s.ScaleDelta != o.ScaleDelta {
		return s.ScaleDelta - o.ScaleDelta
	}
	if s.UnusedArea != o.UnusedArea {
		return s.UnusedArea - o.UnusedArea
	}
	if s.RefreshAtLeastSource != o.RefreshAtLeastSource {
		return boolRank(s.RefreshAtLeastSource)
	}
	return s.RefreshDelta - o.RefreshDelta
}

func boolRank(preferred bool) int {
	if preferred {
		return -1
	}
	return 1
}

// Better reports whether s ranks strictly before o.
func (s Score) Better(o Score) bool { return s.Compare(o) < 0 }

// Evaluate scores mode m for content c. ok is false when the mode cannot
// show the content: it is invalid or the scaler cannot reach the target
// box at the mode's pixel clock.
func Evaluate(c Content, m Mode, lim *overlay.Limits) (s Score, ok bool) {
	sw, sh := c.oriented()
	if !m.Valid() || sw <= 0 || sh <= 0 {
		return Score{}, false
	}
	box := TargetBox(sw, sh, m)
	tw, th := box.Dx(), box.Dy()
	if !lim.Sustainable(sw, sh, tw, th, m.PixelClockKHz) {
		return Score{}, false
	}

	refresh := c.RefreshMilliHz
	if refresh <= 0 {
		refresh = DefaultRefreshMilliHz
	}
	s = Score{
		UpscaleOK:            float64(th) >= float64(sh)*0.99,
		ScaleDelta:           abs(tw-sw) + abs(th-sh),
		UnusedArea:           m.Width*m.Height - tw*th,
		RefreshAtLeastSource: m.RefreshMilliHz >= refresh,
		RefreshDelta:         abs(m.RefreshMilliHz - refresh),
	}
	return s, true
}

// SelectMode returns the best mode for c. Modes the scaler cannot sustain
// are skipped; ErrNoMode is returned when none is left. Ties keep the
// earlier mode.
func SelectMode(c Content, modes []Mode, lim *overlay.Limits) (Mode, Score, error) {
	var (
		best      Mode
		bestScore Score
		found     bool
	)
	for _, m := range modes {
		s, ok := Evaluate(c, m, lim)
		if !ok {
			continue
		}
		if !found || s.Better(bestScore) {
			best, bestScore, found = m, s, true
		}
	}
	if !found {
		return Mode{}, Score{}, fmt.Errorf("%w for %dx%d among %d modes", ErrNoMode, c.Width, c.Height, len(modes))
	}
	return best, bestScore, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
