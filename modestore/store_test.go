// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package modestore

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/geom"
	"github.com/gogpu/hwc/overlay"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "modes.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestLoadMissing(t *testing.T) {
	s, _ := openTemp(t)
	_, ok, err := s.LoadMode(context.Background(), "HDMI-A-1")
	if err != nil || ok {
		t.Errorf("LoadMode() = ok %v err %v, want not found", ok, err)
	}
}

func TestSaveLoadReplace(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()
	hd := display.Mode{Name: "720p", Width: 1280, Height: 720, RefreshMilliHz: 60000, PixelClockKHz: 74250, PhysWidthMM: 160, PhysHeightMM: 90}
	fhd := display.Mode{Name: "1080p", Width: 1920, Height: 1080, RefreshMilliHz: 50000, PixelClockKHz: 148500}

	if err := s.SaveMode(ctx, "HDMI-A-1", hd); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.LoadMode(ctx, "HDMI-A-1")
	if err != nil || !ok || got != hd {
		t.Fatalf("LoadMode() = %v %v %v, want %v", got, ok, err, hd)
	}

	if err := s.SaveMode(ctx, "HDMI-A-1", fhd); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, err = s2.LoadMode(ctx, "HDMI-A-1")
	if err != nil || !ok || got != fhd {
		t.Errorf("after reopen LoadMode() = %v %v %v, want %v", got, ok, err, fhd)
	}
}

func TestListAndForget(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"DP-1", "HDMI-A-1"} {
		if err := s.SaveMode(ctx, name, display.Mode{Width: 1280, Height: 720, RefreshMilliHz: 60000}); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Display != "HDMI-A-1" {
		t.Fatalf("List() = %+v, want HDMI-A-1 first", recs)
	}
	if !recs[0].Updated.Equal(base.Add(2 * time.Second)) {
		t.Errorf("Updated = %v", recs[0].Updated)
	}

	if err := s.Forget(ctx, "HDMI-A-1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.LoadMode(ctx, "HDMI-A-1"); ok {
		t.Error("mode still present after Forget")
	}
}

func TestNewerSchemaRejected(t *testing.T) {
	s, path := openTemp(t)
	if _, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion+1); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if _, err := Open(path); !errors.Is(err, ErrVersion) {
		t.Errorf("Open() err = %v, want ErrVersion", err)
	}
}

type setter struct{ modes []display.Mode }

func (f setter) Modes(context.Context, overlay.Output) ([]display.Mode, error) { return f.modes, nil }
func (f setter) SetMode(context.Context, overlay.Output, display.Mode) error     { return nil }

func TestManagerPrefersStoredMode(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	hd := display.Mode{Width: 1280, Height: 720, RefreshMilliHz: 60000, PixelClockKHz: 74250}
	fhd := display.Mode{Width: 1920, Height: 1080, RefreshMilliHz: 60000, PixelClockKHz: 148500}
	if err := s.SaveMode(ctx, "HDMI-A-1", fhd); err != nil {
		t.Fatal(err)
	}

	m := display.NewManager(display.Config{
		Limits: overlay.DefaultLimits(),
		Screen: image.Rect(0, 0, 1280, 720),
		Memory: s,
	})
	m.SetClone(overlay.CloneMirror, geom.Transform{})
	m.Attach("HDMI-A-1")
	if err := m.Negotiate(ctx, setter{modes: []display.Mode{hd, fhd}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Mode(); got != fhd {
		t.Errorf("Mode() = %v, want the stored %v", got, fhd)
	}
}
