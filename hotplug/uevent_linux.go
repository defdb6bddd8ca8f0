// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build linux

package hotplug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc/internal/hlog"
)

const pollTimeoutMs = 250

// UeventSource turns DRM hotplug uevents into Attach and Detach events.
type UeventSource struct {
	fd    int
	root  string
	skip  []string
	state map[string]bool
}

// OpenUevents subscribes to kernel uevents. root is the sysfs DRM class
// directory (DefaultSysfsRoot when empty); connectors named in internal
// drive the primary panel and never produce events.
func OpenUevents(root string, internal ...string) (*UeventSource, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("hotplug: netlink socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("hotplug: netlink bind: %w", err)
	}
	state, err := scanConnectors(root, internal)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("hotplug: scan connectors: %w", err)
	}
	return &UeventSource{fd: fd, root: root, skip: internal, state: state}, nil
}

// Initial returns Attach events for connectors already connected at open.
func (s *UeventSource) Initial() []Event {
	return diffConnectors(nil, s.state, time.Now())
}

// Run reads uevents until ctx is done, rescanning connector status on
// every DRM hotplug notification.
func (s *UeventSource) Run(ctx context.Context, out chan<- Event) error {
	buf := make([]byte, 8192)
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("hotplug: poll: %w", err)
		}
		if n == 0 {
			continue
		}
		m, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return fmt.Errorf("hotplug: recv: %w", err)
		}
		if _, ok := parseUevent(buf[:m]); !ok {
			continue
		}
		next, err := scanConnectors(s.root, s.skip)
		if err != nil {
			hlog.Logger().Warn("hotplug: rescan", "err", err)
			continue
		}
		for _, ev := range diffConnectors(s.state, next, time.Now()) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.state = next
	}
}

// Close releases the netlink socket.
func (s *UeventSource) Close() error {
	return unix.Close(s.fd)
}
