//go:build linux

package gpiochip

import (
	"time"

	"github.com/sbcgo/rgpiod/internal/sampler"
)

// newWatchdog builds the per-line sampler.Watchdog whose fn produces a
// synthetic Watchdog report and rearms itself, matching spec.md §4.3's
// "a report is produced on a fixed period while the line stays silent."
func newWatchdog(c *Chip, lcb *LCB) *sampler.Watchdog {
	var w *sampler.Watchdog
	w = sampler.NewWatchdog(func() {
		c.mu.Lock()
		lcb.LastReportTS = time.Now()
		level := lcb.Level
		dispatch := c.Dispatch
		chipID := c.id
		offset := lcb.Offset
		c.mu.Unlock()

		if dispatch != nil {
			lvl := uint8(0)
			if level {
				lvl = 1
			}
			dispatch(Report{
				TimestampNS: Tick(), Chip: chipID, Line: uint16(offset),
				Level: lvl, Flags: ReportFlagWatchdog,
			})
		}
		w.Kick()
	})
	return w
}

// sampleGroup blocks reading gpio_v2_line_events from group's fd until
// it is closed by Free, applying each LCB's debounce window and
// forwarding accepted edges to Dispatch. Grounded on the teacher's
// gpioirq.Worker: a tight read loop that does the minimum work needed
// before handing off, so it never falls behind the kernel's event
// buffer.
func (c *Chip) sampleGroup(group *LineGroup) {
	for {
		ev, err := readLineEvent(group.FD)
		if err != nil {
			return
		}
		c.handleLineEvent(group, ev)
	}
}

func (c *Chip) handleLineEvent(group *LineGroup, ev gpioV2LineEvent) {
	c.mu.Lock()
	pos, ok := group.posOf(ev.Offset)
	if !ok || pos >= len(group.LCBs) {
		c.mu.Unlock()
		return
	}
	lcb := group.LCBs[pos]
	level := ev.ID == gpioV2LineEventRisingEdge

	now := time.Unix(0, int64(ev.TimestampNS))
	debounced := lcb.DebounceUS > 0 && !lcb.LastEdgeTS.IsZero() &&
		now.Sub(lcb.LastEdgeTS) < time.Duration(lcb.DebounceUS)*time.Microsecond
	lcb.LastEdgeTS = now
	if debounced {
		c.mu.Unlock()
		return
	}
	lcb.LastReportTS = now
	lcb.Level = level
	dispatch := c.Dispatch
	chipID := c.id
	offset := lcb.Offset
	wd := lcb.watchdog
	c.mu.Unlock()

	if wd != nil {
		wd.Kick()
	}
	if dispatch != nil {
		lvl := uint8(0)
		if level {
			lvl = 1
		}
		dispatch(Report{
			TimestampNS: ev.TimestampNS, Chip: chipID, Line: uint16(offset),
			Level: lvl, Flags: ReportFlagEdge,
		})
	}
}
