// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package hotplug delivers external-display and vsync notifications to the
// planner.
//
// Events are typed values sent over channels. Run is the single consumer:
// it calls a Handler for every event until the context ends. Sources
// include a software vsync Ticker and, on Linux, a UeventSource that
// watches DRM connector hotplug uevents.
package hotplug
