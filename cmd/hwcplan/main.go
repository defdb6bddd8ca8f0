// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command hwcplan plans JSON scenes frame by frame and reports overlay
// assignment, blit work and damage. The fallback plane is composed in
// software and can be written out as PNG files.
//
// Usage:
//
//	hwcplan [-v] [-workers n] [-png dir] [-modes db] scene.json...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	verbose bool
	workers int
	pngDir  string
	modesDB string
	scenes  []string
}

func parse(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("hwcplan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.BoolVar(&o.verbose, "v", false, "log planner diagnostics to stderr")
	fs.IntVar(&o.workers, "workers", 0, "compose subregions on `n` goroutines")
	fs.StringVar(&o.pngDir, "png", "", "write the fallback plane of each frame into `dir`")
	fs.StringVar(&o.modesDB, "modes", "", "remember external display modes in the sqlite `db`")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: hwcplan [flags] scene.json...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.scenes = fs.Args()
	if len(o.scenes) == 0 {
		fs.Usage()
		return nil, flag.ErrHelp
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parse(args, stderr)
	if err != nil {
		return 2
	}
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	r, err := newReporter(o, stdout, log)
	if err != nil {
		fmt.Fprintf(stderr, "hwcplan: %v\n", err)
		return 1
	}
	defer r.Close()

	status := 0
	for _, path := range o.scenes {
		if err := r.Scene(ctx, path); err != nil {
			fmt.Fprintf(stderr, "hwcplan: %v\n", err)
			status = 1
		}
	}
	return status
}
