// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import "fmt"

// Output identifies a display output.
type Output uint8

// Outputs.
const (
	OutputNone Output = iota
	OutputPrimary
	OutputSecondary
)

// String returns the output name.
func (o Output) String() string {
	switch o {
	case OutputPrimary:
		return "primary"
	case OutputSecondary:
		return "secondary"
	default:
		return "none"
	}
}

// CloneMode selects what the secondary output shows.
type CloneMode uint8

// Clone modes.
const (
	// CloneOff leaves the secondary output unused.
	CloneOff CloneMode = iota
	// CloneMirror mirrors every primary plane on the secondary output.
	CloneMirror
	// CloneDock shows the first dockable layer on the secondary output
	// only.
	CloneDock
)

// String returns the mode name.
func (m CloneMode) String() string {
	switch m {
	case CloneMirror:
		return "mirror"
	case CloneDock:
		return "dock"
	default:
		return "off"
	}
}

// SlotCaps describes one hardware overlay pipeline.
type SlotCaps struct {
	// Scaling is false for the pipeline without a scaler.
	Scaling bool
	// MaxScaleDeviation is the scale deviation a non-scaling pipeline
	// still accepts (usually 0).
	MaxScaleDeviation float64
}

// DefaultSlots returns one non-scaling pipeline followed by three scaling
// ones.
func DefaultSlots() []SlotCaps {
	return []SlotCaps{
		{Scaling: false},
		{Scaling: true},
		{Scaling: true},
		{Scaling: true},
	}
}

// Source is what a slot fetches.
type Source uint8

// Slot sources.
const (
	SourceNone Source = iota
	// SourceLayer fetches a layer buffer directly.
	SourceLayer
	// SourceFallback fetches the composed fallback framebuffer.
	SourceFallback
)

// Slot is the per-frame configuration of one overlay pipeline.
type Slot struct {
	Index   int
	Caps    SlotCaps
	Enabled bool
	Output  Output
	Source  Source
	// Layer indexes Request.Layers when Source is SourceLayer.
	Layer int
	// Z is the hardware z-order, distinct across all enabled slots.
	Z int
}

// String returns a short description for logs.
func (s Slot) String() string {
	if !s.Enabled {
		return fmt.Sprintf("slot%d off", s.Index)
	}
	src := "fb"
	if s.Source == SourceLayer {
		src = fmt.Sprintf("layer[%d]", s.Layer)
	}
	return fmt.Sprintf("slot%d %v %s z=%d", s.Index, s.Output, src, s.Z)
}
