//go:build linux

// Package gpiochip implements spec.md §3/§4.1/§4.2: the per-chip state
// (kernel fd, claimed LineGroups, LCBs), line claim/mode transitions, and
// the transmission engine built on internal/txengine.Scheduler.
package gpiochip

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
	"github.com/sbcgo/rgpiod/internal/txengine"
)

const (
	maxDebounceUS = 5_000_000
	maxWatchdogUS = 300_000_000
)

var processStart = time.Now()

// Tick returns nanoseconds since an arbitrary fixed epoch fixed at
// process start, per spec.md §4.3 ("always nanoseconds since an
// arbitrary fixed epoch exposed via get_tick").
func Tick() uint64 { return uint64(time.Since(processStart).Nanoseconds()) }

// Report is what the sampler and transmission-cancel path hand to the
// dispatcher (spec.md §3 Report / §4.3).
type Report struct {
	TimestampNS uint64
	Chip        uint16
	Line        uint16
	Level       uint8
	Flags       uint8
}

const (
	ReportFlagEdge      uint8 = 1 << 0
	ReportFlagWatchdog  uint8 = 1 << 1
	ReportFlagScript    uint8 = 1 << 2
	ReportFlagCancelled uint8 = 1 << 3
)

// ChipLine identifies one line on one chip, used by internal/report to
// key its (chip, line) subscription topics.
type ChipLine struct {
	Chip uint16
	Line uint16
}

// Chip owns one /dev/gpiochipN and every LineGroup claimed from it.
type Chip struct {
	mu sync.Mutex

	num   int
	id    uint16
	fd    int
	file  *os.File // keeps fd alive; do not let this be GC'd independently of fd use
	name  string
	label string
	lines uint32
	user  string

	groups   map[uint32]*LineGroup // first_line -> group
	byOffset map[uint32]uint32     // claimed offset -> first_line

	engine       *txengine.Scheduler
	engineCancel context.CancelFunc

	// Dispatch is called (outside the chip lock) whenever a report is
	// produced by the transmission engine (e.g. a Cancelled report when
	// free() tears down a running transmission). The edge sampler
	// publishes its own reports directly to the same sink.
	Dispatch func(Report)
}

// Open claims chipNum's character device (spec.md §3 Chip).
func Open(chipNum int, id uint16, user string) (*Chip, error) {
	f, err := openChipDevice(chipNum)
	if err != nil {
		return nil, gpioerr.Wrap("open_chip", gpioerr.CannotOpenChip, err)
	}
	name, label, lines, err := getChipInfo(int(f.Fd()))
	if err != nil {
		f.Close()
		return nil, gpioerr.Wrap("open_chip", gpioerr.CannotOpenChip, err)
	}
	c := &Chip{
		num:      chipNum,
		id:       id,
		fd:       int(f.Fd()),
		file:     f,
		name:     name,
		label:    label,
		lines:    lines,
		user:     user,
		groups:   make(map[uint32]*LineGroup),
		byOffset: make(map[uint32]uint32),
	}
	c.engine = txengine.New(c.advance)
	ctx, cancel := context.WithCancel(context.Background())
	c.engineCancel = cancel
	go c.engine.Run(ctx)
	return c, nil
}

// Close tears down every claimed group, stops the transmission engine, and
// closes the chip fd itself.
func (c *Chip) Close() error {
	c.mu.Lock()
	firsts := make([]uint32, 0, len(c.groups))
	for fl := range c.groups {
		firsts = append(firsts, fl)
	}
	c.mu.Unlock()
	for _, fl := range firsts {
		_ = c.Free(fl)
	}
	c.engineCancel()
	return c.file.Close()
}

func (c *Chip) ChipInfo() (name, label string, numLines uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.label, c.lines
}

// Census reports how many lines across all groups are currently claimed
// (SPEC_FULL.md §4 "chipline/bench" diagnostics supplement).
func (c *Chip) Census() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byOffset)
}

func lineID(firstLine uint32, pos int) uint64 {
	return uint64(firstLine)<<32 | uint64(uint32(pos))
}

// ---- claim / free ----

func (c *Chip) claim(offsets []uint32, flags Flags, mode Mode, edge Edge, initial []bool, debounceUS uint32, user string) (*LineGroup, error) {
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, off := range offsets {
		if _, claimed := c.byOffset[off]; claimed {
			return nil, gpioerr.GpioInUse
		}
	}

	var dirBits uint64
	switch mode {
	case ModeInput:
		dirBits = gpioV2LineFlagInput
	case ModeOutput:
		dirBits = gpioV2LineFlagOutput
	case ModeAlert:
		dirBits = gpioV2LineFlagInput | edge.kernelBits()
	}
	kbits := flags.kernelBits(dirBits)

	var outVals []bool
	if mode == ModeOutput {
		outVals = initial
	}

	bufSize := uint32(0)
	if mode == ModeAlert {
		bufSize = 64
	}

	gfd, err := requestLines(c.fd, offsets, kbits, outVals, "rgpiod", bufSize)
	if err != nil {
		return nil, gpioerr.Wrap("claim", gpioerr.BadGpio, err)
	}

	if mode == ModeAlert && debounceUS > 0 {
		var mask uint64
		for i := range offsets {
			mask |= 1 << uint(i)
		}
		_ = setLineConfig(gfd, kbits, nil, debounceUS, mask)
	}

	group := &LineGroup{
		FirstLine: offsets[0],
		Offsets:   append([]uint32(nil), offsets...),
		FD:        gfd,
		Mode:      mode,
		Flags:     flags,
	}
	group.LCBs = make([]*LCB, len(offsets))
	for i, off := range offsets {
		lvl := false
		if i < len(outVals) {
			lvl = outVals[i]
		}
		group.LCBs[i] = &LCB{
			Offset:     off,
			Pos:        i,
			Level:      lvl,
			DebounceUS: debounceUS,
			Edge:       edge,
			User:       user,
		}
		c.byOffset[off] = group.FirstLine
	}
	c.groups[group.FirstLine] = group

	if mode == ModeAlert {
		for _, lcb := range group.LCBs {
			lcb.watchdog = newWatchdog(c, lcb)
		}
		go c.sampleGroup(group)
	}
	return group, nil
}

// ClaimInput implements spec.md §4.1 claim_input.
func (c *Chip) ClaimInput(offset uint32, flags Flags, user string) error {
	_, err := c.claim([]uint32{offset}, flags, ModeInput, EdgeNone, nil, 0, user)
	return err
}

// ClaimOutput implements claim_output: initial level is written before
// the line is presented as output (spec.md §4.1).
func (c *Chip) ClaimOutput(offset uint32, flags Flags, initial bool, user string) error {
	_, err := c.claim([]uint32{offset}, flags, ModeOutput, EdgeNone, []bool{initial}, 0, user)
	return err
}

// ClaimAlert implements claim_alert.
func (c *Chip) ClaimAlert(offset uint32, flags Flags, edge Edge, debounceUS uint32, user string) error {
	if debounceUS > maxDebounceUS {
		return gpioerr.BadDebounceMics
	}
	_, err := c.claim([]uint32{offset}, flags, ModeAlert, edge, nil, debounceUS, user)
	return err
}

// GroupClaimInput/GroupClaimOutput implement spec.md §4.1's "Group
// operations are atomic: either all lines are claimed or none" — claim()
// already checks every offset before installing any group.
func (c *Chip) GroupClaimInput(offsets []uint32, flags Flags, user string) error {
	_, err := c.claim(offsets, flags, ModeInput, EdgeNone, nil, 0, user)
	return err
}

func (c *Chip) GroupClaimOutput(offsets []uint32, flags Flags, initial []bool, user string) error {
	if len(initial) != len(offsets) {
		return gpioerr.BadFileParam
	}
	_, err := c.claim(offsets, flags, ModeOutput, EdgeNone, initial, 0, user)
	return err
}

// Free releases the whole group containing firstLine (spec.md §4.1:
// "free on any line of a group releases the whole group"). Pending
// transmissions on those lines are cancelled and reported as Cancelled.
func (c *Chip) Free(firstLineOrMember uint32) error {
	c.mu.Lock()
	fl, ok := c.byOffset[firstLineOrMember]
	if !ok {
		fl = firstLineOrMember
	}
	group, ok := c.groups[fl]
	if !ok {
		c.mu.Unlock()
		return gpioerr.BadGpio
	}
	delete(c.groups, fl)
	for _, off := range group.Offsets {
		delete(c.byOffset, off)
	}
	var cancelled []Report
	for pos, lcb := range group.LCBs {
		id := lineID(group.FirstLine, pos)
		if lcb.BusyAny() {
			c.engine.Disarm(id)
			lcb.Tx = TxState{}
			cancelled = append(cancelled, Report{
				TimestampNS: Tick(), Chip: c.id, Line: uint16(lcb.Offset),
				Flags: ReportFlagCancelled,
			})
		}
		if lcb.watchdog != nil {
			lcb.watchdog.Stop()
		}
	}
	dispatch := c.Dispatch
	c.mu.Unlock()

	closeFD(group.FD)
	if dispatch != nil {
		for _, r := range cancelled {
			dispatch(r)
		}
	}
	return nil
}

// ---- debounce / watchdog / mode ----

func (c *Chip) findLCB(offset uint32) (*LineGroup, *LCB, bool) {
	fl, ok := c.byOffset[offset]
	if !ok {
		return nil, nil, false
	}
	group := c.groups[fl]
	pos, ok := group.posOf(offset)
	if !ok {
		return nil, nil, false
	}
	return group, group.LCBs[pos], true
}

func (c *Chip) SetDebounce(offset uint32, debounceUS uint32) error {
	if debounceUS > maxDebounceUS {
		return gpioerr.BadDebounceMics
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, lcb, ok := c.findLCB(offset)
	if !ok {
		return gpioerr.BadGpio
	}
	lcb.DebounceUS = debounceUS
	return nil
}

func (c *Chip) SetWatchdog(offset uint32, watchdogUS uint32) error {
	if watchdogUS > maxWatchdogUS {
		return gpioerr.BadWatchdogMics
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, lcb, ok := c.findLCB(offset)
	if !ok {
		return gpioerr.BadGpio
	}
	lcb.WatchdogUS = watchdogUS
	if lcb.watchdog != nil {
		lcb.watchdog.SetDuration(time.Duration(watchdogUS) * time.Microsecond)
		if watchdogUS > 0 {
			lcb.watchdog.Kick()
		}
	}
	return nil
}

func (c *Chip) GetMode(offset uint32) (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, _, ok := c.findLCB(offset)
	if !ok {
		return 0, gpioerr.BadGpio
	}
	return group.Mode, nil
}

// LineInfo is the read model for get_line_info (spec.md §4.1).
type LineInfo struct {
	Offset     uint32
	Mode       Mode
	Flags      Flags
	Edge       Edge
	DebounceUS uint32
	WatchdogUS uint32
	Level      bool
	User       string
}

func (c *Chip) GetLineInfo(offset uint32) (LineInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, lcb, ok := c.findLCB(offset)
	if !ok {
		return LineInfo{}, gpioerr.BadGpio
	}
	return LineInfo{
		Offset: offset, Mode: group.Mode, Flags: group.Flags, Edge: lcb.Edge,
		DebounceUS: lcb.DebounceUS, WatchdogUS: lcb.WatchdogUS, Level: lcb.Level, User: lcb.User,
	}, nil
}

// ---- read / write ----

func (c *Chip) Read(offset uint32) (bool, error) {
	c.mu.Lock()
	group, _, ok := c.findLCB(offset)
	if !ok {
		c.mu.Unlock()
		return false, gpioerr.BadGpio
	}
	pos, _ := group.posOf(offset)
	fd := group.FD
	c.mu.Unlock()

	bits, err := getLineValues(fd, 1<<uint(pos))
	if err != nil {
		return false, gpioerr.Wrap("read", gpioerr.BadGpio, err)
	}
	level := bits&(1<<uint(pos)) != 0

	c.mu.Lock()
	_, lcb, _ := c.findLCB(offset)
	if lcb != nil {
		lcb.Level = level
	}
	c.mu.Unlock()
	return level, nil
}

func (c *Chip) Write(offset uint32, level bool) error {
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
	pos, _ := group.posOf(offset)
	fd := group.FD
	mask := uint64(1) << uint(pos)
	var bits uint64
	if level {
		bits = mask
	}
	c.mu.Unlock()

	if err := setLineValues(fd, bits, mask); err != nil {
		return gpioerr.Wrap("write", gpioerr.BadGpio, err)
	}
	c.mu.Lock()
	lcb.Level = level
	c.mu.Unlock()
	return nil
}

// writeGroupMasked performs the single atomic group write used by
// tx_wave (spec.md §4.2): new_group_bits = (current & ~mask) | (bits & mask).
func (c *Chip) writeGroupMasked(group *LineGroup, bits, mask uint64) error {
	if err := setLineValues(group.FD, bits, mask); err != nil {
		return err
	}
	for i, lcb := range group.LCBs {
		if mask&(1<<uint(i)) != 0 {
			lcb.Level = bits&(1<<uint(i)) != 0
		}
	}
	return nil
}

func (c *Chip) Lock()   { c.mu.Lock() }
func (c *Chip) Unlock() { c.mu.Unlock() }

func (c *Chip) groupAndLCB(firstLine uint32, pos int) (*LineGroup, *LCB, bool) {
	g, ok := c.groups[firstLine]
	if !ok || pos < 0 || pos >= len(g.LCBs) {
		return nil, nil, false
	}
	return g, g.LCBs[pos], true
}
