// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/internal/scenario"
	"github.com/gogpu/hwc/modestore"
	"github.com/gogpu/hwc/overlay"
)

// totals accumulates the work of one scene.
type totals struct {
	frames   int
	blits    int
	merged   int
	pixels   int
	degraded int
}

func (t *totals) add(plan *hwc.Plan) {
	t.frames++
	t.blits += len(plan.Submission.Blits)
	t.merged += plan.Stats.Merged
	t.pixels += plan.Stats.Pixels
	if plan.Submission.Degraded {
		t.degraded++
	}
}

type reporter struct {
	opts  *options
	w     io.Writer
	p     *message.Printer
	log   *slog.Logger
	store *modestore.Store
}

func newReporter(o *options, w io.Writer, log *slog.Logger) (*reporter, error) {
	r := &reporter{
		opts: o,
		w:    w,
		p:    message.NewPrinter(language.English),
		log:  log,
	}
	if o.pngDir != "" {
		if err := os.MkdirAll(o.pngDir, 0o755); err != nil {
			return nil, err
		}
	}
	if o.modesDB != "" {
		st, err := modestore.Open(o.modesDB)
		if err != nil {
			return nil, err
		}
		r.store = st
	}
	return r, nil
}

func (r *reporter) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// Scene plans every frame of the scene at path and prints one line per
// frame plus a summary.
func (r *reporter) Scene(ctx context.Context, path string) error {
	f, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}
	cfg := scenario.Config{Log: r.log, Workers: r.opts.workers}
	if r.store != nil {
		cfg.Options = append(cfg.Options, hwc.WithModeMemory(r.store))
	}
	hwc.SetLogger(r.log)
	run, err := scenario.NewRunner(ctx, f, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer run.Close()

	r.p.Fprintf(r.w, "%s: %dx%d, %d frames\n", f.Name, f.Screen.Width, f.Screen.Height, run.Len())
	if m, ok := run.Backend().Mode(); ok {
		r.p.Fprintf(r.w, "  external %s: %v\n", f.External.Name, m)
	}
	var sum totals
	for !run.Done() {
		st, err := run.Step(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sum.add(st.Plan)
		r.frame(st)
		if err := r.writePNG(path, st); err != nil {
			return err
		}
	}
	r.p.Fprintf(r.w, "  total: %d blits, %d merged, %d pixels", sum.blits, sum.merged, sum.pixels)
	if sum.degraded > 0 {
		r.p.Fprintf(r.w, ", %d degraded frames", sum.degraded)
	}
	r.p.Fprintf(r.w, "\n")
	return nil
}

func (r *reporter) frame(st *scenario.Step) {
	plan := st.Plan
	sub := plan.Submission
	var planes []string
	for _, o := range sub.Overlays {
		if !o.Enabled {
			continue
		}
		what := fmt.Sprintf("L%d", o.Layer)
		if o.Source == overlay.SourceFallback {
			what = "fb"
		}
		planes = append(planes, fmt.Sprintf("%s%d=%s", o.Output.String()[:1], o.Slot, what))
	}
	r.p.Fprintf(r.w, "  frame %d: [%s] fallback %d, blits %d, pixels %d, damage %v",
		st.Index, strings.Join(planes, " "), len(plan.Composed), len(sub.Blits), plan.Stats.Pixels, plan.Damage)
	if plan.Clone != overlay.CloneOff {
		r.p.Fprintf(r.w, ", clone %v", plan.Clone)
	}
	if len(plan.GPULayers) > 0 {
		r.p.Fprintf(r.w, ", gpu %d", len(plan.GPULayers))
	}
	if sub.Degraded {
		r.p.Fprintf(r.w, ", degraded")
	}
	r.p.Fprintf(r.w, "\n")
}

func (r *reporter) writePNG(scene string, st *scenario.Step) error {
	if r.opts.pngDir == "" || st.Framebuffer == nil {
		return nil
	}
	base := strings.TrimSuffix(filepath.Base(scene), filepath.Ext(scene))
	name := filepath.Join(r.opts.pngDir, fmt.Sprintf("%s-%03d.png", base, st.Index))
	return savePNG(name, st.Framebuffer)
}

func savePNG(name string, img image.Image) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return png.Encode(f, img)
}
