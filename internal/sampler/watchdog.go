// Package sampler provides the watchdog timer behind spec.md §4.3's
// per-line "report silence after N microseconds" contract. The blocking
// kernel-event read loop itself lives next to the fd it reads
// (internal/gpiochip), grounded on the teacher's gpioirq.Worker; this
// package is the reusable piece: arm/kick/stop around a time.Timer,
// the same shape as the teacher's util timer helpers.
package sampler

import (
	"sync"
	"time"
)

// Watchdog fires fn if Kick is not called again within its configured
// duration. A zero duration means "disabled": Kick is then a no-op.
type Watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	stopped  bool
	fn       func()
}

// NewWatchdog creates a stopped watchdog; call Kick to arm it once a
// nonzero duration is set via SetDuration.
func NewWatchdog(fn func()) *Watchdog {
	return &Watchdog{fn: fn}
}

func (w *Watchdog) SetDuration(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.duration = d
	if d == 0 && w.timer != nil {
		w.timer.Stop()
	}
}

// Kick resets the watchdog's countdown. Call it on every observed edge
// and, once armed, from within fn itself so the "still alive" report
// keeps recurring at the same period (spec.md §4.3: "a synthetic report
// is produced on a fixed period while the line stays silent").
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.duration == 0 || w.stopped {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.duration, w.fn)
		return
	}
	w.timer.Reset(w.duration)
}

// Stop disarms the watchdog permanently.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
