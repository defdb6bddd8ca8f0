// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hotplug

import (
	"context"
	"sync"
	"time"

	"github.com/gogpu/hwc/internal/hlog"
)

// Run feeds events to h until ctx is done or events is closed. Handler
// errors are logged; they never stop the loop. Run returns ctx.Err() when
// the context ends and nil when the channel is closed.
func Run(ctx context.Context, events <-chan Event, h Handler) error {
	log := hlog.Logger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case Attach:
				log.Info("hotplug: display attached", "display", e.Display)
				if err := h.Attached(ctx, e); err != nil {
					log.Warn("hotplug: attach", "display", e.Display, "err", err)
				}
			case Detach:
				log.Info("hotplug: display detached", "display", e.Display)
				if err := h.Detached(ctx, e); err != nil {
					log.Warn("hotplug: detach", "display", e.Display, "err", err)
				}
			case VsyncTick:
				h.Vsync(e)
			}
		}
	}
}

// Merge forwards the events of all sources to one channel. The result is
// closed once every source is closed or ctx is done.
func Merge(ctx context.Context, sources ...<-chan Event) <-chan Event {
	out := make(chan Event)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Interval returns the frame period of a refresh rate in mHz. Rates at or
// below zero give the 60 Hz period.
func Interval(refreshMilliHz int) time.Duration {
	if refreshMilliHz <= 0 {
		refreshMilliHz = 60000
	}
	return time.Duration(int64(time.Second) * 1000 / int64(refreshMilliHz))
}

// Ticker is a software vsync source for outputs without a hardware vblank
// notification.
type Ticker struct {
	interval time.Duration
}

// NewTicker returns a ticker firing every interval.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = Interval(0)
	}
	return &Ticker{interval: interval}
}

// Run sends a VsyncTick per period to out until ctx is done. Ticks are
// dropped while the consumer is busy.
func (t *Ticker) Run(ctx context.Context, out chan<- Event) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq++
			select {
			case out <- VsyncTick{Seq: seq, Time: now}:
			default:
			}
		}
	}
}
