// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command hwcview steps through a JSON scene in the terminal, showing
// which plane carries each layer, the band partition of the fallback plane
// and the damaged area of every frame.
//
// Keys: n, space or right arrow advance one frame; q or Escape quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/internal/scenario"
	"github.com/gogpu/hwc/internal/termview"
)

func main() {
	logPath := flag.String("log", "", "write planner diagnostics to `file`")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hwcview [-log file] scene.json\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := view(ctx, flag.Arg(0), *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "hwcview: %v\n", err)
		os.Exit(1)
	}
}

func view(ctx context.Context, path, logPath string) error {
	var log *slog.Logger
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			return err
		}
		defer f.Close()
		log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		hwc.SetLogger(log)
	}

	scene, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}
	r, err := scenario.NewRunner(ctx, scene, scenario.Config{Log: log, Workers: runtime.GOMAXPROCS(0)})
	if err != nil {
		return err
	}
	defer r.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	return termview.Run(ctx, screen, r)
}
