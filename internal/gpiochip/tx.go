//go:build linux

package gpiochip

import (
	"time"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
	"github.com/sbcgo/rgpiod/x/mathx"
)

const (
	minPeriodUS = 1
	maxPeriodUS = 60_000_000

	minServoWidthUS = 500
	maxServoWidthUS = 2_500
	minServoFreqHz  = 40
	maxServoFreqHz  = 500
)

// advance is the txengine.AdvanceFunc for every line in every chip: id
// encodes (firstLine, position) per lineID. It is invoked by the
// scheduler goroutine with no locks held, so it takes the chip lock
// itself (spec.md §4.2: "the thread... advances that line's state
// machine... under the chip lock").
func (c *Chip) advance(id uint64, due time.Time) (time.Time, bool) {
	firstLine := uint32(id >> 32)
	pos := int(uint32(id))

	c.mu.Lock()
	group, lcb, ok := c.groupAndLCB(firstLine, pos)
	if !ok || lcb.Tx.Kind == TxIdle {
		c.mu.Unlock()
		return time.Time{}, false
	}

	var report *Report
	var next time.Time
	rearm := true

	switch lcb.Tx.Kind {
	case TxPulse, TxPWM, TxServo:
		next, rearm, report = c.advanceSquare(group, lcb)
	case TxWave:
		next, rearm, report = c.advanceWave(group, lcb)
	default:
		rearm = false
	}
	if !rearm {
		lcb.Tx = TxState{}
	}
	dispatch := c.Dispatch
	c.mu.Unlock()

	if dispatch != nil && report != nil {
		dispatch(*report)
	}
	return next, rearm
}

// advanceSquare drives the shared square-wave state machine behind
// tx_pulse/tx_pwm/tx_servo: flip Phase, write the new level, compute the
// next deadline, and stop once CyclesTotal is exhausted.
func (c *Chip) advanceSquare(group *LineGroup, lcb *LCB) (time.Time, bool, *Report) {
	tx := &lcb.Tx
	newLevel := !tx.Phase
	tx.Phase = newLevel

	pos := lcb.Pos
	mask := uint64(1) << uint(pos)
	var bits uint64
	if newLevel {
		bits = mask
	}
	_ = c.writeGroupMasked(group, bits, mask)

	if !newLevel {
		tx.CyclesDone++
		if tx.CyclesTotal != 0 && tx.CyclesDone >= tx.CyclesTotal {
			return time.Time{}, false, &Report{
				TimestampNS: Tick(), Chip: c.id, Line: uint16(lcb.Offset), Flags: ReportFlagScript,
			}
		}
	}

	var delay time.Duration
	if newLevel {
		delay = time.Duration(tx.OnUS) * time.Microsecond
	} else {
		delay = time.Duration(tx.OffUS) * time.Microsecond
	}
	next := tx.NextDeadline.Add(delay)
	tx.NextDeadline = next
	return next, true, nil
}

// advanceWave executes one WaveStep of the one-shot program started by
// tx_wave, writing its (bits, mask) atomically and arming the delay
// until the next step.
func (c *Chip) advanceWave(group *LineGroup, lcb *LCB) (time.Time, bool, *Report) {
	tx := &lcb.Tx
	if tx.WavePC >= len(tx.WaveProgram) {
		return time.Time{}, false, &Report{
			TimestampNS: Tick(), Chip: c.id, Line: uint16(lcb.Offset), Flags: ReportFlagScript,
		}
	}
	step := tx.WaveProgram[tx.WavePC]
	tx.WavePC++
	_ = c.writeGroupMasked(group, step.Bits, step.Mask)

	if tx.WavePC >= len(tx.WaveProgram) {
		return time.Time{}, false, &Report{
			TimestampNS: Tick(), Chip: c.id, Line: uint16(lcb.Offset), Flags: ReportFlagScript,
		}
	}
	next := time.Now().Add(time.Duration(step.DelayUS) * time.Microsecond)
	tx.NextDeadline = next
	return next, true, nil
}

// TxPulse implements tx_pulse (spec.md §4.2): onUS/offUS square wave for
// cycles repetitions (0 = run until cancelled).
func (c *Chip) TxPulse(offset uint32, onUS, offUS, offsetUS, cycles uint32) error {
	if onUS == 0 && offUS == 0 {
		return gpioerr.BadPulseWidth
	}
	if onUS > maxPeriodUS || offUS > maxPeriodUS {
		return gpioerr.BadPulseWidth
	}
	return c.startSquare(offset, TxPulse, onUS, offUS, offsetUS, cycles)
}

// TxPWM implements tx_pwm: frequency (Hz) and duty cycle (0..1000000,
// i.e. millionths) define onUS/offUS.
func (c *Chip) TxPWM(offset uint32, freqHz uint32, dutyMicros uint32, cycles uint32) error {
	if freqHz == 0 {
		return gpioerr.BadPwmFreq
	}
	if dutyMicros > 1_000_000 {
		return gpioerr.BadPwmDuty
	}
	periodUS := mathx.RoundDiv(uint32(1_000_000), freqHz)
	if periodUS == 0 || periodUS > maxPeriodUS {
		return gpioerr.BadPwmFreq
	}
	if dutyMicros == 0 || dutyMicros == 1_000_000 {
		// 0% and 100% duty hold the line at a constant level; nothing is
		// scheduled on the engine.
		c.mu.Lock()
		_, lcb, ok := c.findLCB(offset)
		busy := ok && lcb.BusyAny()
		c.mu.Unlock()
		if busy {
			return gpioerr.GpioInUse
		}
		return c.Write(offset, dutyMicros != 0)
	}
	onUS := uint32((uint64(periodUS) * uint64(dutyMicros)) / 1_000_000)
	offUS := periodUS - onUS
	if onUS == 0 {
		onUS = 1
		if offUS > 0 {
			offUS--
		}
	}
	return c.startSquare(offset, TxPWM, onUS, offUS, 0, cycles)
}

// TxServo implements tx_servo: pulse width in microseconds at a fixed
// servo refresh frequency.
func (c *Chip) TxServo(offset uint32, widthUS uint32, freqHz uint32, cycles uint32) error {
	if !mathx.Between(widthUS, uint32(minServoWidthUS), uint32(maxServoWidthUS)) {
		return gpioerr.BadServoWidth
	}
	if !mathx.Between(freqHz, uint32(minServoFreqHz), uint32(maxServoFreqHz)) {
		return gpioerr.BadServoFreq
	}
	periodUS := mathx.RoundDiv(uint32(1_000_000), freqHz)
	if widthUS >= periodUS {
		return gpioerr.BadServoWidth
	}
	return c.startSquare(offset, TxServo, widthUS, periodUS-widthUS, 0, cycles)
}

func (c *Chip) startSquare(offset uint32, kind TxKind, onUS, offUS, offsetUS, cycles uint32) error {
	c.mu.Lock()
	group, lcb, ok := c.findLCB(offset)
	if !ok {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	if group.Mode != ModeOutput {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	if lcb.BusyAny() {
		c.mu.Unlock()
		return gpioerr.GpioInUse
	}
	first := time.Now().Add(time.Duration(offsetUS) * time.Microsecond)
	lcb.Tx = TxState{
		Kind: kind, OnUS: onUS, OffUS: offUS, OffsetUS: offsetUS,
		CyclesTotal: cycles, Phase: false, NextDeadline: first,
	}
	id := lineID(group.FirstLine, lcb.Pos)
	c.mu.Unlock()

	c.engine.Arm(id, first)
	return nil
}

// TxWave implements tx_wave: a caller-built one-shot program of
// (bits, mask, delay) steps executed against the whole group.
func (c *Chip) TxWave(firstLine uint32, steps []WaveStep) error {
	c.mu.Lock()
	group, ok := c.groups[firstLine]
	if !ok {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	if group.Mode != ModeOutput {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	lcb := group.LCBs[0]
	if lcb.Room() < len(steps) {
		c.mu.Unlock()
		return gpioerr.BadFileParam
	}
	if lcb.BusyAny() {
		c.mu.Unlock()
		return gpioerr.GpioInUse
	}
	if len(steps) == 0 {
		// An empty program completes at once and leaves the group idle.
		c.mu.Unlock()
		return nil
	}
	lcb.Tx = TxState{Kind: TxWave, WaveProgram: append([]WaveStep(nil), steps...), WavePC: 0}
	first := time.Now()
	lcb.Tx.NextDeadline = first
	id := lineID(group.FirstLine, 0)
	c.mu.Unlock()

	c.engine.Arm(id, first)
	return nil
}

// TxStop implements tx_stop: cancel any running transmission on offset.
func (c *Chip) TxStop(offset uint32) error {
	c.mu.Lock()
	group, lcb, ok := c.findLCB(offset)
	if !ok {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	if !lcb.BusyAny() {
		c.mu.Unlock()
		return nil
	}
	id := lineID(group.FirstLine, lcb.Pos)
	lcb.Tx = TxState{}
	c.mu.Unlock()

	c.engine.Disarm(id)
	return nil
}

// TxBusy implements tx_busy(line, kind): kind==TxIdle asks "any
// transmission," otherwise it asks about that specific kind only.
func (c *Chip) TxBusy(offset uint32, kind TxKind) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, lcb, ok := c.findLCB(offset)
	if !ok {
		return false, gpioerr.BadGpio
	}
	if kind == TxIdle {
		return lcb.BusyAny(), nil
	}
	return lcb.Busy(kind), nil
}

// TxRoom implements tx_room.
func (c *Chip) TxRoom(offset uint32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, lcb, ok := c.findLCB(offset)
	if !ok {
		return 0, gpioerr.BadGpio
	}
	return lcb.Room(), nil
}
