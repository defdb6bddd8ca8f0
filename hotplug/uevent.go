// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hotplug

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultSysfsRoot is where DRM connectors are listed.
const DefaultSysfsRoot = "/sys/class/drm"

// parseUevent decodes a kernel uevent datagram:
// "action@devpath\0KEY=VALUE\0...". It reports whether the message is a
// DRM hotplug notification.
func parseUevent(msg []byte) (map[string]string, bool) {
	fields := bytes.Split(msg, []byte{0})
	if len(fields) == 0 || !bytes.Contains(fields[0], []byte{'@'}) {
		return nil, false
	}
	env := make(map[string]string, len(fields))
	for _, f := range fields[1:] {
		k, v, ok := bytes.Cut(f, []byte{'='})
		if !ok {
			continue
		}
		env[string(k)] = string(v)
	}
	return env, env["SUBSYSTEM"] == "drm" && env["HOTPLUG"] == "1"
}

// scanConnectors reads <root>/card*-*/status and returns which connectors
// are connected. Connectors named in skip are omitted.
func scanConnectors(root string, skip []string) (map[string]bool, error) {
	paths, err := filepath.Glob(filepath.Join(root, "card*-*", "status"))
	if err != nil {
		return nil, err
	}
	state := make(map[string]bool, len(paths))
	for _, p := range paths {
		name := connectorName(filepath.Base(filepath.Dir(p)))
		if slices.Contains(skip, name) {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		state[name] = strings.TrimSpace(string(b)) == "connected"
	}
	return state, nil
}

// connectorName strips the "cardN-" prefix: "card0-HDMI-A-1" -> "HDMI-A-1".
func connectorName(dir string) string {
	if _, rest, ok := strings.Cut(dir, "-"); ok {
		return rest
	}
	return dir
}

// diffConnectors returns the events turning prev into next, sorted by
// connector name so detaches and attaches arrive in a stable order.
func diffConnectors(prev, next map[string]bool, now time.Time) []Event {
	names := make([]string, 0, len(prev)+len(next))
	for n := range prev {
		names = append(names, n)
	}
	for n := range next {
		if _, ok := prev[n]; !ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)

	var evs []Event
	for _, n := range names {
		was, is := prev[n], next[n]
		switch {
		case was && !is:
			evs = append(evs, Detach{Display: n, Time: now})
		case !was && is:
			evs = append(evs, Attach{Display: n, Time: now})
		}
	}
	return evs
}
