// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package geom

import "fmt"

// Rotation is a clockwise rotation in quarter turns.
type Rotation uint8

// Supported rotations.
const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// RotationFromDegrees converts a multiple of 90 degrees into a Rotation.
// Negative angles rotate counter-clockwise. The second result is false if
// deg is not a multiple of 90.
func RotationFromDegrees(deg int) (Rotation, bool) {
	if deg%90 != 0 {
		return Rotate0, false
	}
	q := (deg / 90) % 4
	if q < 0 {
		q += 4
	}
	return Rotation(q), true
}

// Degrees returns the rotation in degrees (0, 90, 180 or 270).
func (r Rotation) Degrees() int { return int(r%4) * 90 }

// Add returns r rotated further by o.
func (r Rotation) Add(o Rotation) Rotation { return (r + o) % 4 }

// Sub returns r rotated back by o.
func (r Rotation) Sub(o Rotation) Rotation { return (r + 4 - o%4) % 4 }

// String returns a human-readable name.
func (r Rotation) String() string { return fmt.Sprintf("rot%d", r.Degrees()) }

// Transform is an orientation change: a clockwise rotation applied first,
// followed by an optional horizontal mirror.
//
// Mirror and rotation do not commute, so the order matters for Compose and
// Inverse.
type Transform struct {
	Rotation Rotation
	Mirror   bool
}

// IsIdentity reports whether t leaves geometry unchanged.
func (t Transform) IsIdentity() bool {
	return t.Rotation%4 == Rotate0 && !t.Mirror
}

// SwapsAxes reports whether t exchanges width and height.
func (t Transform) SwapsAxes() bool {
	return t.Rotation%2 == 1
}

// Compose returns the transform equivalent to applying t and then outer.
//
//	rotation' = rotation + outer.rotation   (t not mirrored)
//	rotation' = rotation - outer.rotation   (t mirrored)
//	mirror'   = mirror XOR outer.mirror
func (t Transform) Compose(outer Transform) Transform {
	rot := t.Rotation.Add(outer.Rotation)
	if t.Mirror {
		rot = t.Rotation.Sub(outer.Rotation)
	}
	return Transform{Rotation: rot, Mirror: t.Mirror != outer.Mirror}
}

// Inverse returns the transform that undoes t.
// A mirrored transform is its own inverse.
func (t Transform) Inverse() Transform {
	if t.Mirror {
		return t
	}
	return Transform{Rotation: Rotate0.Sub(t.Rotation)}
}

// Matrix returns the linear part of t as an affine matrix about the origin.
func (t Transform) Matrix() Matrix {
	var m Matrix
	switch t.Rotation % 4 {
	case Rotate0:
		m = Matrix{A: 1, E: 1}
	case Rotate90:
		m = Matrix{B: -1, D: 1}
	case Rotate180:
		m = Matrix{A: -1, E: -1}
	case Rotate270:
		m = Matrix{B: 1, D: -1}
	}
	if t.Mirror {
		m = Mirror().Multiply(m)
	}
	return m
}

// String returns a compact description such as "rot90+mirror".
func (t Transform) String() string {
	if t.Mirror {
		return t.Rotation.String() + "+mirror"
	}
	return t.Rotation.String()
}
