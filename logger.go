// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"log/slog"

	"github.com/gogpu/hwc/internal/hlog"
)

// SetLogger configures the logger for hwc and all its sub-packages.
// By default hwc produces no log output. Pass nil to restore the silent
// default. SetLogger is safe for concurrent use.
//
// Log levels used by hwc:
//   - [slog.LevelDebug]: per-frame diagnostics (decisions, damage, blit counts)
//   - [slog.LevelInfo]: lifecycle events (display attached, mode selected)
//   - [slog.LevelWarn]: degradations (slot budget, blit list full, cloning disabled)
//   - [slog.LevelError]: defects in a submission
//
// Example:
//
//	hwc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	hlog.Set(l)
}

// Logger returns the current logger used by hwc.
func Logger() *slog.Logger {
	return hlog.Logger()
}
