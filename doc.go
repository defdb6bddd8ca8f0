// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package hwc plans display composition: for every frame it decides which
// layers a display controller scans out directly from hardware overlay
// pipelines and composes the rest into a fallback framebuffer with a 2D
// blit engine, repainting only what changed.
//
// # Pipeline
//
// A frame walks the sub-packages in dependency order:
//
//	overlay.Check       per-layer overlay eligibility
//	overlay.Allocator   slot budget, fallback plane, secondary output
//	display.Manager     external display mode and transform
//	damage.Tracker      identity-based damage over retained snapshots
//	region.Partition    horizontal bands and subregions
//	blit.Synthesize     copy/blend/clear entries for the fallback plane
//	Assemble            one Submission for the display backend
//
// # Usage
//
//	p, err := hwc.New(backend, engine,
//	    hwc.WithScreen(1280, 720),
//	    hwc.WithFramebuffers(fb0, fb1),
//	)
//	if err != nil {
//	    return err
//	}
//	plan, err := p.Plan(hwc.Frame{Layers: layers})
//	if err != nil {
//	    return err
//	}
//	err = p.Submit(ctx, plan)
//
// Plan never blocks. Submit hands the blit entries to the BlitEngine and
// the Submission to the DisplayBackend and waits for both to accept them.
//
// # Events
//
// A Planner is a hotplug.Handler. Run hotplug.Run on a separate goroutine
// to feed it display attach/detach and vsync events; they only touch
// configuration guarded by the planner's mutex and request a
// recomposition through the WithRecomposeFunc hook.
//
// # Companion packages
//
// softblit executes blit entries on the CPU, gpupresent shows the fallback
// plane through a gpucontext texture, modestore remembers external display
// modes in sqlite, and hotplug reads DRM connector events on Linux.
//
// # Logging
//
// hwc is silent by default. SetLogger enables structured logging for the
// package and all sub-packages.
package hwc
