// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/internal/hlog"
	"github.com/gogpu/hwc/overlay"
)

// ModeSetter is the part of a display backend the Manager negotiates with.
type ModeSetter interface {
	// Modes lists the timings the output supports.
	Modes(ctx context.Context, out overlay.Output) ([]Mode, error)
	// SetMode switches the output to m.
	SetMode(ctx context.Context, out overlay.Output, m Mode) error
}

// ModeMemory remembers the last mode committed per display.
type ModeMemory interface {
	LoadMode(ctx context.Context, display string) (Mode, bool, error)
	SaveMode(ctx context.Context, display string, m Mode) error
}

// Config configures a Manager.
type Config struct {
	Limits overlay.Limits
	// Screen is the primary screen in primary coordinates.
	Screen image.Rectangle
	// SourceRefreshMilliHz is the refresh rate of the primary content.
	SourceRefreshMilliHz int
	// Memory is optional.
	Memory ModeMemory
}

// Manager keeps the state of the secondary output for one session, from
// Attach to Detach. It is not safe for concurrent use; the planner guards
// it with its configuration mutex.
type Manager struct {
	cfg Config

	clone     overlay.CloneMode
	transform geom.Transform

	name       string
	attached   bool
	negotiated bool
	disabled   bool

	mode   Mode
	score  Score
	box    image.Rectangle
	matrix geom.Matrix
}

// NewManager returns a Manager with cloning off and no display attached.
func NewManager(cfg Config) *Manager {
	if cfg.SourceRefreshMilliHz <= 0 {
		cfg.SourceRefreshMilliHz = DefaultRefreshMilliHz
	}
	return &Manager{cfg: cfg, matrix: geom.Identity()}
}

// SetClone sets the requested clone mode and the output-level transform.
// A change invalidates the negotiated mode.
func (m *Manager) SetClone(mode overlay.CloneMode, t geom.Transform) {
	if mode == m.clone && t == m.transform {
		return
	}
	m.clone, m.transform = mode, t
	m.negotiated = false
}

// SetScreen updates the primary screen size. A change invalidates the
// negotiated mode.
func (m *Manager) SetScreen(r image.Rectangle) {
	if r == m.cfg.Screen {
		return
	}
	m.cfg.Screen = r
	m.negotiated = false
}

// Attach starts a session with the named display. A previous negotiation
// failure is forgotten.
func (m *Manager) Attach(name string) {
	m.name = name
	m.attached = true
	m.negotiated = false
	m.disabled = false
}

// Detach ends the session.
func (m *Manager) Detach() {
	m.attached = false
	m.negotiated = false
	m.disabled = false
	m.mode = Mode{}
	m.matrix = geom.Identity()
}

// Attached reports whether a secondary display is present.
func (m *Manager) Attached() bool { return m.attached }

// Disabled reports whether cloning was disabled for this session.
func (m *Manager) Disabled() bool { return m.disabled }

// Display returns the name of the attached display.
func (m *Manager) Display() string { return m.name }

// NeedsNegotiation reports whether Negotiate has work to do.
func (m *Manager) NeedsNegotiation() bool {
	return m.attached && !m.disabled && !m.negotiated && m.clone != overlay.CloneOff
}

// Clone returns the effective clone mode: CloneOff unless a display is
// attached and a mode has been negotiated.
func (m *Manager) Clone() overlay.CloneMode {
	if !m.attached || m.disabled || !m.negotiated {
		return overlay.CloneOff
	}
	return m.clone
}

// Mode returns the negotiated mode.
func (m *Manager) Mode() (Mode, bool) {
	return m.mode, m.negotiated
}

// Matrix returns the primary-to-secondary mapping.
func (m *Manager) Matrix() geom.Matrix { return m.matrix }

// OutputTransform returns the output-level rotation and mirror.
func (m *Manager) OutputTransform() geom.Transform { return m.transform }

// Bounds returns the secondary screen rectangle.
func (m *Manager) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.mode.Width, m.mode.Height)
}

// Negotiate picks and commits a mode for the attached display. A
// remembered mode is preferred while it is still offered and usable. On
// failure cloning is disabled until the next Attach and the error is
// returned; the primary output is not affected.
func (m *Manager) Negotiate(ctx context.Context, s ModeSetter) error {
	if !m.NeedsNegotiation() {
		return nil
	}
	log := hlog.Logger()

	modes, err := s.Modes(ctx, overlay.OutputSecondary)
	if err != nil {
		m.disabled = true
		return fmt.Errorf("display: list modes of %q: %w", m.name, err)
	}

	content := Content{
		Width:          m.cfg.Screen.Dx(),
		Height:         m.cfg.Screen.Dy(),
		Transform:      m.transform,
		RefreshMilliHz: m.cfg.SourceRefreshMilliHz,
	}
	chosen, score, ok := m.remembered(ctx, content, modes)
	if !ok {
		chosen, score, err = SelectMode(content, modes, &m.cfg.Limits)
		if err != nil {
			m.disabled = true
			log.Warn("display: cloning disabled", "display", m.name, "err", err)
			return fmt.Errorf("display: negotiate %q: %w", m.name, err)
		}
	}

	if err := s.SetMode(ctx, overlay.OutputSecondary, chosen); err != nil {
		m.disabled = true
		log.Warn("display: cloning disabled", "display", m.name, "err", err)
		return fmt.Errorf("display: set mode %v on %q: %w", chosen, m.name, err)
	}
	if m.cfg.Memory != nil {
		if err := m.cfg.Memory.SaveMode(ctx, m.name, chosen); err != nil {
			log.Warn("display: remember mode", "display", m.name, "err", err)
		}
	}

	sw, sh := content.oriented()
	m.mode, m.score = chosen, score
	m.box = TargetBox(sw, sh, chosen)
	m.matrix = BuildTransform(m.cfg.Screen, m.transform, m.box)
	m.negotiated = true
	log.Info("display: mode selected",
		"display", m.name,
		"mode", chosen.String(),
		"box", m.box.String(),
		"clone", m.clone.String())
	return nil
}

func (m *Manager) remembered(ctx context.Context, c Content, modes []Mode) (Mode, Score, bool) {
	if m.cfg.Memory == nil {
		return Mode{}, Score{}, false
	}
	prev, ok, err := m.cfg.Memory.LoadMode(ctx, m.name)
	if err != nil {
		hlog.Logger().Warn("display: load remembered mode", "display", m.name, "err", err)
		return Mode{}, Score{}, false
	}
	if !ok {
		return Mode{}, Score{}, false
	}
	for _, mode := range modes {
		if mode.Width != prev.Width || mode.Height != prev.Height || mode.RefreshMilliHz != prev.RefreshMilliHz {
			continue
		}
		if s, ok := Evaluate(c, mode, &m.cfg.Limits); ok {
			return mode, s, true
		}
	}
	return Mode{}, Score{}, false
}

// Mirror maps a primary-space frame and layer transform onto the secondary
// output. The frame is clipped to the secondary screen.
func (m *Manager) Mirror(frame image.Rectangle, t geom.Transform) (image.Rectangle, geom.Transform) {
	dst := m.matrix.MapRect(frame).Intersect(m.Bounds())
	return dst, t.Compose(m.transform)
}

// Dock places a docked layer with the given crop and transform on the
// secondary output, as large as its aspect ratio allows.
func (m *Manager) Dock(crop image.Rectangle, t geom.Transform) (image.Rectangle, geom.Transform) {
	out := t.Compose(m.transform)
	w, h := crop.Dx(), crop.Dy()
	if out.SwapsAxes() {
		w, h = h, w
	}
	return TargetBox(w, h, m.mode), out
}
