// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hotplug

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by event sources not available on the
// current platform.
var ErrUnsupported = errors.New("hotplug: not supported on this platform")

// Event is one of Attach, Detach or VsyncTick.
type Event interface {
	isEvent()
}

// Attach reports that an external display was connected.
type Attach struct {
	Display string
	Time    time.Time
}

// Detach reports that an external display was disconnected.
type Detach struct {
	Display string
	Time    time.Time
}

// VsyncTick reports a vertical blank of the primary output.
type VsyncTick struct {
	Seq  uint64
	Time time.Time
}

func (Attach) isEvent()    {}
func (Detach) isEvent()    {}
func (VsyncTick) isEvent() {}

// Handler reacts to events. Attached and Detached may block on the
// display backend; Vsync must return quickly.
type Handler interface {
	Attached(ctx context.Context, e Attach) error
	Detached(ctx context.Context, e Detach) error
	Vsync(e VsyncTick)
}
