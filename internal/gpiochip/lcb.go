package gpiochip

import (
	"time"

	"github.com/sbcgo/rgpiod/internal/sampler"
)

// TxKind identifies which transmission state machine (if any) an LCB is
// currently running — spec.md §4.2.
type TxKind uint8

const (
	TxIdle TxKind = iota
	TxPulse
	TxPWM
	TxServo
	TxWave
)

// TxState holds whichever state machine is active for one line, as
// described in spec.md §3 ("transmission state"). Only the fields for the
// active Kind are meaningful.
type TxState struct {
	Kind TxKind

	// Pulse / PWM / Servo, all driven as a square wave with an optional
	// finite cycle count.
	OnUS, OffUS   uint32
	OffsetUS      uint32
	CyclesTotal   uint32 // 0 = infinite
	CyclesDone    uint32
	Phase         bool // current logical output level written by the engine
	NextDeadline  time.Time

	// Wave: a one-shot program of (bits, mask, delay) steps.
	WaveProgram []WaveStep
	WavePC      int
}

// WaveStep is the pulse-step / wave-program element from spec.md §3.
type WaveStep struct {
	Bits    uint64
	Mask    uint64
	DelayUS uint32
}

// LCB is the per-line control block from spec.md §3.
type LCB struct {
	Offset uint32 // line offset on the chip
	Pos    int    // position within the owning LineGroup

	Level       bool // current logical level, active-low aware
	DebounceUS  uint32
	WatchdogUS  uint32
	Edge        Edge

	Tx TxState

	LastEdgeTS    time.Time // sampler-owned; read under chip lock
	LastReportTS  time.Time

	watchdog *sampler.Watchdog // nil until the owning group arms alert mode

	User string // snapshot at claim time (spec.md §9 open question)
}

// Busy reports whether the LCB's current transmission kind is exactly k
// (so Busy(TxIdle) is true when nothing is running). Callers wanting
// "any transmission" use BusyAny.
func (l *LCB) Busy(k TxKind) bool {
	return l.Tx.Kind == k
}

// BusyAny reports whether any transmission is active.
func (l *LCB) BusyAny() bool {
	return l.Tx.Kind != TxIdle
}

// Room is the remaining scheduling capacity advertised by tx_room
// (spec.md §4.2: "implementation-defined ≥ 16 steps").
func (l *LCB) Room() int {
	const capacity = 64
	if l.Tx.Kind != TxWave {
		return capacity
	}
	remaining := len(l.Tx.WaveProgram) - l.Tx.WavePC
	if remaining < 0 {
		remaining = 0
	}
	return capacity - remaining
}
