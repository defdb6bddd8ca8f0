// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/hwc/blit"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/overlay"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		overlays []OverlayConfig
		want     []error
	}{
		{
			name: "distinct",
			overlays: []OverlayConfig{
				{Slot: 0, Enabled: true, Z: 0},
				{Slot: 1, Enabled: true, Z: 1},
				{Slot: 2, Enabled: false, Z: 1},
			},
		},
		{
			name: "duplicate z",
			overlays: []OverlayConfig{
				{Slot: 0, Enabled: true, Z: 1},
				{Slot: 1, Enabled: true, Z: 1},
			},
			want: []error{ErrDuplicateZ},
		},
		{
			name: "duplicate slot",
			overlays: []OverlayConfig{
				{Slot: 2, Enabled: true, Z: 0},
				{Slot: 2, Enabled: true, Z: 1},
			},
			want: []error{ErrDuplicateSlot},
		},
		{
			name: "both",
			overlays: []OverlayConfig{
				{Slot: 3, Enabled: true, Z: 0},
				{Slot: 3, Enabled: true, Z: 0},
			},
			want: []error{ErrDuplicateZ, ErrDuplicateSlot},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Submission{Overlays: tt.overlays})
			if len(tt.want) == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Errorf("Validate() = %v, want %v", err, w)
				}
			}
		})
	}
}

func TestAssembleKeepsDefectiveSubmission(t *testing.T) {
	overlays := []OverlayConfig{
		{Slot: 0, Enabled: true, Z: 0, Handle: 5},
		{Slot: 1, Enabled: true, Z: 0, Handle: 6},
	}
	s := Assemble(7, overlays, nil, nil)
	if len(s.Overlays) != 2 {
		t.Fatalf("overlays = %d, want both kept", len(s.Overlays))
	}
	if !errors.Is(Validate(s), ErrDuplicateZ) {
		t.Error("defect not reported")
	}
}

func TestAssembleHandles(t *testing.T) {
	fb := &layer.Buffer{Handle: 100}
	overlays := []OverlayConfig{
		{Slot: 0, Enabled: true, Source: overlay.SourceFallback, Handle: 100, Z: 1},
		{Slot: 1, Enabled: true, Source: overlay.SourceLayer, Handle: 7, Z: 0},
		{Slot: 2, Enabled: false, Handle: 8},
	}
	blits := []blit.Entry{
		{Op: blit.OpCopy, Dst: blit.Surface{Handle: 100}, Src1: blit.Surface{Handle: 9}},
		{Op: blit.OpBlend, Dst: blit.Surface{Handle: 100}, Src1: blit.Surface{Handle: 7}, Src2: blit.Surface{Handle: 10}},
		{Op: blit.OpClear, Dst: blit.Surface{Handle: 100}},
	}
	s := Assemble(1, overlays, blits, fb)

	want := []layer.Handle{100, 7, 9, 10}
	if !slices.Equal(s.Handles, want) {
		t.Errorf("Handles = %v, want %v", s.Handles, want)
	}
	if s.Framebuffer != 0 {
		t.Errorf("Framebuffer = %d, want 0", s.Framebuffer)
	}
	if s.Overlays[1].Buffer != 1 || s.Overlays[2].Buffer != -1 {
		t.Errorf("Buffer indices = %d, %d", s.Overlays[1].Buffer, s.Overlays[2].Buffer)
	}
	if got := s.Enabled(overlay.OutputNone); len(got) != 2 {
		t.Errorf("Enabled(none) = %d, want 2", len(got))
	}
}
