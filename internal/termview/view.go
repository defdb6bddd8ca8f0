// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package termview draws planner decisions on a terminal. Each cell stands
// for a block of display pixels and shows the topmost layer there, coloured
// by the plane that carries it, with band and subregion edges and the
// damaged area marked.
package termview

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/internal/scenario"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
	"github.com/gogpu/hwc/region"
)

// Cell glyphs.
const (
	glyphBand   = '─'
	glyphSplit  = '│'
	glyphEmpty  = '·'
	glyphCorner = '┼'
)

var slotColors = []tcell.Color{
	tcell.ColorGreen, tcell.ColorAqua, tcell.ColorYellow, tcell.ColorFuchsia,
	tcell.ColorOlive, tcell.ColorTeal, tcell.ColorPurple, tcell.ColorNavy,
}

var (
	styleStatus   = tcell.StyleDefault.Reverse(true)
	styleFallback = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleEdge     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	damageBg      = tcell.ColorMaroon
)

// View renders steps onto a screen.
type View struct {
	screen tcell.Screen
}

// New returns a view drawing on s. The caller owns s.
func New(s tcell.Screen) *View {
	return &View{screen: s}
}

// placement describes who carries a layer this frame.
type placement struct {
	slot     int
	fallback bool
	gpu      bool
}

func placements(plan *hwc.Plan) map[layer.ID]placement {
	m := make(map[layer.ID]placement, len(plan.Layers))
	for _, o := range plan.Submission.Overlays {
		if o.Enabled && o.Output == overlay.OutputPrimary && o.Layer != 0 {
			m[o.Layer] = placement{slot: o.Slot}
		}
	}
	for _, i := range plan.Composed {
		m[plan.Layers[i].ID] = placement{fallback: true}
	}
	for _, i := range plan.GPULayers {
		m[plan.Layers[i].ID] = placement{fallback: true, gpu: true}
	}
	return m
}

// Draw renders one step of a scene with frames total frames and shows it.
func (v *View) Draw(st *scenario.Step, frames int) {
	s := v.screen
	s.Clear()
	cols, rows := s.Size()
	if cols < 8 || rows < 4 {
		s.Show()
		return
	}
	plan := st.Plan
	v.text(0, 0, status(st, frames), styleStatus, cols)
	v.drawMap(plan, st.Screen, cols, rows-2)
	v.text(0, rows-1, legend(plan), tcell.StyleDefault, cols)
	s.Show()
}

// DrawMessage shows a single line, used for errors and the end of a scene.
func (v *View) DrawMessage(msg string) {
	cols, rows := v.screen.Size()
	v.text(0, rows-1, msg, styleStatus, cols)
	v.screen.Show()
}

func status(st *scenario.Step, frames int) string {
	plan := st.Plan
	sub := plan.Submission
	return fmt.Sprintf(" frame %d/%d  ov %d+%d  blits %d  clone %v  dmg %v%s",
		st.Index+1, frames,
		len(sub.Enabled(overlay.OutputPrimary)), len(sub.Enabled(overlay.OutputSecondary)),
		len(sub.Blits), plan.Clone, plan.Damage, flagText(plan))
}

func flagText(plan *hwc.Plan) string {
	var b strings.Builder
	if plan.Submission.Degraded {
		b.WriteString("  DEGRADED")
	}
	if len(plan.GPULayers) > 0 {
		b.WriteString("  gpu")
	}
	return b.String()
}

func legend(plan *hwc.Plan) string {
	var parts []string
	for _, o := range plan.Submission.Overlays {
		if !o.Enabled {
			continue
		}
		what := fmt.Sprintf("L%d", o.Layer)
		if o.Layer == 0 {
			what = "fb"
		}
		parts = append(parts, fmt.Sprintf("%s%d:%s", o.Output.String()[:1], o.Slot, what))
	}
	return strings.Join(parts, " ") + "  [n]ext [q]uit"
}

// drawMap fills rows 1..h with the display scaled to the terminal.
func (v *View) drawMap(plan *hwc.Plan, screen image.Rectangle, cols, h int) {
	if screen.Empty() {
		return
	}
	place := placements(plan)
	order := stacking(plan.Layers)

	for cy := range h {
		y0 := screen.Min.Y + cy*screen.Dy()/h
		y1 := screen.Min.Y + (cy+1)*screen.Dy()/h
		for cx := range cols {
			x0 := screen.Min.X + cx*screen.Dx()/cols
			x1 := screen.Min.X + (cx+1)*screen.Dx()/cols
			cell := image.Rect(x0, y0, max(x1, x0+1), max(y1, y0+1))
			r, style := cellAt(plan, order, place, cell)
			v.screen.SetContent(cx, cy+1, r, nil, style)
		}
	}
}

// stacking returns layer indices from top to bottom.
func stacking(layers []layer.Layer) []int {
	idx := make([]int, len(layers))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && layers[idx[j]].Z > layers[idx[j-1]].Z; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}

func cellAt(plan *hwc.Plan, order []int, place map[layer.ID]placement, c image.Rectangle) (rune, tcell.Style) {
	r, style := glyphEmpty, styleFallback
	p := image.Pt(c.Min.X+c.Dx()/2, c.Min.Y+c.Dy()/2)
	for _, i := range order {
		l := &plan.Layers[i]
		if !p.In(l.Frame) {
			continue
		}
		r = idGlyph(l.ID)
		pl := place[l.ID]
		switch {
		case pl.gpu:
			style = styleFallback.Underline(true)
		case pl.fallback:
			style = styleFallback
		default:
			style = tcell.StyleDefault.Foreground(slotColors[pl.slot%len(slotColors)]).Bold(true)
		}
		break
	}

	band, split := edges(&plan.Regions, c)
	switch {
	case band && split:
		r, style = glyphCorner, styleEdge
	case band:
		r, style = glyphBand, styleEdge
	case split:
		r, style = glyphSplit, styleEdge
	}
	if c.Overlaps(plan.Damage) {
		style = style.Background(damageBg)
	}
	return r, style
}

// edges reports whether an inner band top or subregion left edge falls
// inside c.
func edges(m *region.Map, c image.Rectangle) (band, split bool) {
	for i := range m.Bands {
		b := &m.Bands[i]
		if b.Top > 0 && b.Top >= c.Min.Y && b.Top < c.Max.Y {
			band = true
		}
		if b.Bottom <= c.Min.Y || b.Top >= c.Max.Y {
			continue
		}
		for _, s := range b.Subregions {
			if s.Left > 0 && s.Left >= c.Min.X && s.Left < c.Max.X {
				split = true
			}
		}
	}
	return band, split
}

func idGlyph(id layer.ID) rune {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	return rune(digits[int(id)%len(digits)])
}

func (v *View) text(x, y int, s string, style tcell.Style, width int) {
	i := 0
	for _, r := range s {
		if x+i >= width {
			return
		}
		v.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
	for ; x+i < width && style == styleStatus; i++ {
		v.screen.SetContent(x+i, y, ' ', nil, style)
	}
}

// Stepper yields the next step of a scene.
type Stepper interface {
	Step(ctx context.Context) (*scenario.Step, error)
	Done() bool
	Len() int
}

// Run draws the first step and then advances on n, space or the right
// arrow until q, Escape or Ctrl-C, or ctx is done. It returns the first
// step error.
func Run(ctx context.Context, s tcell.Screen, r Stepper) error {
	v := New(s)
	stop := context.AfterFunc(ctx, func() {
		_ = s.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	advance := func() error {
		if r.Done() {
			v.DrawMessage(" end of scene, q to quit")
			return nil
		}
		st, err := r.Step(ctx)
		if err != nil {
			return err
		}
		v.Draw(st, r.Len())
		return nil
	}
	if err := advance(); err != nil {
		return err
	}
	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			return ctx.Err()
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				return nil
			case ev.Key() == tcell.KeyRight, ev.Key() == tcell.KeyRune && (ev.Rune() == 'n' || ev.Rune() == ' '):
				if err := advance(); err != nil {
					return err
				}
			}
		}
	}
}
