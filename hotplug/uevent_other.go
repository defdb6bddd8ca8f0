// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !linux

package hotplug

import "context"

// UeventSource is unavailable outside Linux.
type UeventSource struct{}

// OpenUevents always returns ErrUnsupported.
func OpenUevents(string, ...string) (*UeventSource, error) {
	return nil, ErrUnsupported
}

// Initial returns nil.
func (*UeventSource) Initial() []Event { return nil }

// Run returns ErrUnsupported.
func (*UeventSource) Run(context.Context, chan<- Event) error { return ErrUnsupported }

// Close is a no-op.
func (*UeventSource) Close() error { return nil }
