//go:build linux

package daemon

import (
	"encoding/binary"

	"github.com/sbcgo/rgpiod/internal/filebus"
	"github.com/sbcgo/rgpiod/internal/gpiochip"
	"github.com/sbcgo/rgpiod/internal/handle"
	"github.com/sbcgo/rgpiod/internal/i2cbus"
	"github.com/sbcgo/rgpiod/internal/serialbus"
	"github.com/sbcgo/rgpiod/internal/spibus"
)

// Line-claim/read/write/tx handlers address a line by (chip handle in
// p1, offset in p2) throughout, matching the wire convention documented
// on dispatch.

func (s *Server) cmdOpenChip(sess *Session, hdr RequestHeader) (int32, []byte) {
	num := int(hdr.P1)
	id := s.allocChipID()
	c, err := gpiochip.Open(num, id, sess.User())
	if err != nil {
		return statusOf(err), nil
	}
	s.mu.Lock()
	s.chips[id] = c
	s.mu.Unlock()
	c.Dispatch = func(r gpiochip.Report) { s.dispatcher.Publish(id, r) }

	h := s.chipH.Alloc(id, sess.ShareID(), sess.User())
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

// allocChipID hands out the next chip id and reserves it so a concurrent
// open_chip can't be assigned the same id before this one's Chip is
// registered in s.chips.
func (s *Server) allocChipID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextChip
	s.nextChip++
	return id
}

func (s *Server) resolveChip(h handle.Handle) (*gpiochip.Chip, error) {
	res, err := s.chipH.Resolve(h)
	if err != nil {
		return nil, err
	}
	return s.chip(res.(uint16))
}

func (s *Server) cmdClaimInput(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	var flags gpiochip.Flags
	if len(ext) >= 4 {
		flags = gpiochip.Flags(le32(ext))
	}
	err = c.ClaimInput(hdr.P2, flags, sess.User())
	return statusOf(err), nil
}

func (s *Server) cmdClaimOutput(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	var flags gpiochip.Flags
	var initial bool
	if len(ext) >= 4 {
		flags = gpiochip.Flags(le32(ext))
	}
	if len(ext) >= 5 {
		initial = ext[4] != 0
	}
	err = c.ClaimOutput(hdr.P2, flags, initial, sess.User())
	return statusOf(err), nil
}

func (s *Server) cmdClaimAlert(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	var flags gpiochip.Flags
	var edge gpiochip.Edge
	var debounceUS uint32
	if len(ext) >= 4 {
		flags = gpiochip.Flags(le32(ext))
	}
	if len(ext) >= 5 {
		edge = gpiochip.Edge(ext[4])
	}
	if len(ext) >= 9 {
		debounceUS = le32(ext[5:9])
	}
	err = c.ClaimAlert(hdr.P2, flags, edge, debounceUS, sess.User())
	return statusOf(err), nil
}

// cmdGroupClaimInput's ext is a flags word followed by one u32 offset per
// line: [flags:4][offset:4]*n.
func (s *Server) cmdGroupClaimInput(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext) < 4 {
		return statusBadCommand, nil
	}
	flags := gpiochip.Flags(le32(ext[0:4]))
	rest := ext[4:]
	offsets := make([]uint32, len(rest)/4)
	for i := range offsets {
		offsets[i] = le32(rest[i*4 : i*4+4])
	}
	return statusOf(c.GroupClaimInput(offsets, flags, sess.User())), nil
}

// cmdGroupClaimOutput's ext is a flags word followed by one (offset:4,
// initial:1) pair per line: [flags:4]([offset:4][initial:1])*n.
func (s *Server) cmdGroupClaimOutput(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext) < 4 {
		return statusBadCommand, nil
	}
	flags := gpiochip.Flags(le32(ext[0:4]))
	rest := ext[4:]
	n := len(rest) / 5
	offsets := make([]uint32, n)
	initial := make([]bool, n)
	for i := 0; i < n; i++ {
		offsets[i] = le32(rest[i*5 : i*5+4])
		initial[i] = rest[i*5+4] != 0
	}
	return statusOf(c.GroupClaimOutput(offsets, flags, initial, sess.User())), nil
}

func (s *Server) cmdFree(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(c.Free(hdr.P2)), nil
}

func (s *Server) cmdRead(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	v, err := c.Read(hdr.P2)
	if err != nil {
		return statusOf(err), nil
	}
	if v {
		return statusOK, []byte{1}
	}
	return statusOK, []byte{0}
}

func (s *Server) cmdWrite(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(c.Write(hdr.P2, hdr.Reserved != 0)), nil
}

func (s *Server) cmdGetChipInfo(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	name, label, lines := c.ChipInfo()
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, lines)
	resp = append(resp, []byte(name)...)
	resp = append(resp, 0)
	resp = append(resp, []byte(label)...)
	return statusOK, resp
}

// cmdGetChipCensus implements the chipline/bench-style diagnostics
// getter: how many lines on this chip are currently claimed by anyone.
func (s *Server) cmdGetChipCensus(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(c.Census()))
	return statusOK, resp
}

func (s *Server) cmdGetLineInfo(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	info, err := c.GetLineInfo(hdr.P2)
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 12)
	binary.LittleEndian.PutUint32(resp[0:4], uint32(info.Flags))
	binary.LittleEndian.PutUint32(resp[4:8], info.DebounceUS)
	binary.LittleEndian.PutUint32(resp[8:12], info.WatchdogUS)
	resp = append(resp, byte(info.Mode), byte(info.Edge))
	if info.Level {
		resp = append(resp, 1)
	} else {
		resp = append(resp, 0)
	}
	return statusOK, resp
}

func (s *Server) cmdSetDebounce(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(c.SetDebounce(hdr.P2, uint32(hdr.Reserved)*1000)), nil
}

func (s *Server) cmdSetWatchdog(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(c.SetWatchdog(hdr.P2, uint32(hdr.Reserved)*1000)), nil
}

func (s *Server) cmdTxPulse(hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext) < 16 {
		return statusBadCommand, nil
	}
	onUS, offUS, offsetUS, cycles := le32(ext[0:4]), le32(ext[4:8]), le32(ext[8:12]), le32(ext[12:16])
	return statusOf(c.TxPulse(hdr.P2, onUS, offUS, offsetUS, cycles)), nil
}

func (s *Server) cmdTxPWM(hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext) < 12 {
		return statusBadCommand, nil
	}
	freq, duty, cycles := le32(ext[0:4]), le32(ext[4:8]), le32(ext[8:12])
	return statusOf(c.TxPWM(hdr.P2, freq, duty, cycles)), nil
}

func (s *Server) cmdTxServo(hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext) < 12 {
		return statusBadCommand, nil
	}
	width, freq, cycles := le32(ext[0:4]), le32(ext[4:8]), le32(ext[8:12])
	return statusOf(c.TxServo(hdr.P2, width, freq, cycles)), nil
}

const waveStepSize = 20 // bits:8 + mask:8 + delay_us:4

// cmdTxWave's ext is a sequence of (bits:8, mask:8, delay_us:4) steps.
func (s *Server) cmdTxWave(hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	if len(ext)%waveStepSize != 0 {
		return statusBadCommand, nil
	}
	steps := make([]gpiochip.WaveStep, len(ext)/waveStepSize)
	for i := range steps {
		off := i * waveStepSize
		steps[i] = gpiochip.WaveStep{
			Bits:    binary.LittleEndian.Uint64(ext[off : off+8]),
			Mask:    binary.LittleEndian.Uint64(ext[off+8 : off+16]),
			DelayUS: le32(ext[off+16 : off+20]),
		}
	}
	return statusOf(c.TxWave(hdr.P2, steps)), nil
}

func (s *Server) cmdTxStop(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(c.TxStop(hdr.P2)), nil
}

// cmdTxBusy implements tx_busy(line, kind). ext carries an optional
// single kind byte; when absent (or zero, gpiochip.TxIdle) it asks "any
// transmission at all," matching BusyAny.
func (s *Server) cmdTxBusy(hdr RequestHeader, ext []byte) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	kind := gpiochip.TxIdle
	if len(ext) >= 1 {
		kind = gpiochip.TxKind(ext[0])
	}
	busy, err := c.TxBusy(hdr.P2, kind)
	if err != nil {
		return statusOf(err), nil
	}
	if busy {
		return statusOK, []byte{1}
	}
	return statusOK, []byte{0}
}

func (s *Server) cmdTxRoom(hdr RequestHeader) (int32, []byte) {
	c, err := s.resolveChip(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	room, err := c.TxRoom(hdr.P2)
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(room))
	return statusOK, resp
}

// ---- I2C ----

func (s *Server) cmdOpenI2C(sess *Session, hdr RequestHeader) (int32, []byte) {
	dev, err := i2cbus.Open(int(hdr.P1), int(hdr.P2))
	if err != nil {
		return statusOf(err), nil
	}
	h := s.i2cH.Alloc(&i2cHandle{dev: dev, bus: int(hdr.P1), addr: int(hdr.P2)}, sess.ShareID(), sess.User())
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

func (s *Server) cmdI2CWriteByte(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(res.(*i2cHandle).dev.WriteByte(uint16(hdr.P2))), nil
}

func (s *Server) cmdI2CReadByte(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	v, err := res.(*i2cHandle).dev.ReadByte()
	if err != nil {
		return statusOf(err), nil
	}
	return statusOK, []byte{v}
}

func (s *Server) cmdI2CWriteQuick(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(res.(*i2cHandle).dev.WriteQuick(uint8(hdr.P2))), nil
}

func (s *Server) cmdI2CWriteWord(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	reg := uint8(hdr.P2 >> 16)
	value := hdr.P2 & 0xFFFF
	return statusOf(res.(*i2cHandle).dev.WriteWord(reg, value)), nil
}

func (s *Server) cmdI2CReadWord(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	v, err := res.(*i2cHandle).dev.ReadWord(uint8(hdr.P2))
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 2)
	binary.LittleEndian.PutUint16(resp, v)
	return statusOK, resp
}

func (s *Server) cmdI2CWriteBlock(hdr RequestHeader, ext []byte) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(res.(*i2cHandle).dev.WriteBlock(uint8(hdr.P2), ext)), nil
}

func (s *Server) cmdI2CReadBlock(hdr RequestHeader) (int32, []byte) {
	res, err := s.i2cH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	block, err := res.(*i2cHandle).dev.ReadBlock(uint8(hdr.P2))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOK, block
}

// ---- SPI ----

func (s *Server) cmdOpenSPI(sess *Session, hdr RequestHeader) (int32, []byte) {
	bus := int(hdr.P1 >> 8)
	cs := int(hdr.P1 & 0xFF)
	mode := uint8(hdr.Reserved >> 8)
	bitsPerWord := uint8(hdr.Reserved & 0xFF)
	dev, err := spibus.Open(bus, cs, mode, bitsPerWord, hdr.P2)
	if err != nil {
		return statusOf(err), nil
	}
	h := s.spiH.Alloc(&spiHandle{dev: dev}, sess.ShareID(), sess.User())
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

func (s *Server) cmdSPIXfer(hdr RequestHeader, ext []byte) (int32, []byte) {
	res, err := s.spiH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	n := int(hdr.P2)
	if len(ext) < n {
		return statusBadCommand, nil
	}
	tx := ext[:n]
	rx := make([]byte, n)
	if err := res.(*spiHandle).dev.Xfer(tx, rx); err != nil {
		return statusOf(err), nil
	}
	return statusOK, rx
}

func (s *Server) cmdSPIWrite(hdr RequestHeader, ext []byte) (int32, []byte) {
	res, err := s.spiH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	return statusOf(res.(*spiHandle).dev.Write(ext)), nil
}

func (s *Server) cmdSPIRead(hdr RequestHeader) (int32, []byte) {
	res, err := s.spiH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	rx := make([]byte, hdr.P2)
	if err := res.(*spiHandle).dev.Read(rx); err != nil {
		return statusOf(err), nil
	}
	return statusOK, rx
}

// ---- Serial ----

func (s *Server) cmdOpenSerial(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	port, err := serialbus.Open(string(ext), hdr.P1, hdr.P2)
	if err != nil {
		return statusOf(err), nil
	}
	h := s.serialH.Alloc(&serialHandle{port: port}, sess.ShareID(), sess.User())
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

func (s *Server) cmdSerialWrite(hdr RequestHeader, ext []byte) (int32, []byte) {
	res, err := s.serialH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	_, err = res.(*serialHandle).port.Write(ext)
	return statusOf(err), nil
}

func (s *Server) cmdSerialRead(hdr RequestHeader) (int32, []byte) {
	res, err := s.serialH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	buf := make([]byte, hdr.P2)
	n, err := res.(*serialHandle).port.Read(buf)
	if err != nil {
		return statusOf(err), nil
	}
	return statusOK, buf[:n]
}

// ---- File ----

func (s *Server) cmdOpenFile(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	mode := filebus.Mode(hdr.P1)
	path := string(ext)
	if s.permits != nil {
		wantRead := mode&filebus.ModeRead != 0
		wantWrite := mode&filebus.ModeWrite != 0
		if !s.permits.AllowsFile(sess.User(), path, wantRead, wantWrite) {
			return statusNoPermission, nil
		}
	}
	f, err := filebus.Open(path, mode)
	if err != nil {
		return statusOf(err), nil
	}
	h := s.fileH.Alloc(&fileHandle{f: f}, sess.ShareID(), sess.User())
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

func (s *Server) cmdFileRead(hdr RequestHeader) (int32, []byte) {
	res, err := s.fileH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	buf := make([]byte, hdr.P2)
	n, err := res.(*fileHandle).f.Read(buf)
	if err != nil && n == 0 {
		return statusOf(err), nil
	}
	return statusOK, buf[:n]
}

func (s *Server) cmdFileWrite(hdr RequestHeader, ext []byte) (int32, []byte) {
	res, err := s.fileH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	_, err = res.(*fileHandle).f.Write(ext)
	return statusOf(err), nil
}

func (s *Server) cmdFileSeek(hdr RequestHeader) (int32, []byte) {
	res, err := s.fileH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	off, err := res.(*fileHandle).f.Seek(int64(hdr.P2), filebus.Whence(hdr.Reserved))
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 8)
	binary.LittleEndian.PutUint64(resp, uint64(off))
	return statusOK, resp
}

// cmdFileGlob does not need an open handle; ext is the glob pattern and
// the response is every match NUL-separated.
func (s *Server) cmdFileGlob(ext []byte) (int32, []byte) {
	matches, err := filebus.Glob(string(ext))
	if err != nil {
		return statusOf(err), nil
	}
	var resp []byte
	for i, m := range matches {
		if i > 0 {
			resp = append(resp, 0)
		}
		resp = append(resp, []byte(m)...)
	}
	return statusOK, resp
}

// ---- Scripts ----

func (s *Server) cmdScriptStore(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	h := s.scriptH.Alloc(struct{}{}, sess.ShareID(), sess.User())
	if err := s.scripts.Store(uint32(h), string(ext)); err != nil {
		s.scriptH.Release(h)
		return statusOf(err), nil
	}
	sess.own(h)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(h))
	return statusOK, resp
}

func (s *Server) cmdScriptRun(hdr RequestHeader, ext []byte) (int32, []byte) {
	params := make([]int64, len(ext)/8)
	for i := range params {
		params[i] = int64(binary.LittleEndian.Uint64(ext[i*8 : i*8+8]))
	}
	return statusOf(s.scripts.Run(hdr.P1, params)), nil
}

func (s *Server) cmdScriptStop(hdr RequestHeader) (int32, []byte) {
	return statusOf(s.scripts.Stop(hdr.P1)), nil
}

func (s *Server) cmdScriptStatus(hdr RequestHeader) (int32, []byte) {
	st, params, err := s.scripts.Status(hdr.P1)
	if err != nil {
		return statusOf(err), nil
	}
	resp := make([]byte, 1+8*len(params))
	resp[0] = byte(st)
	for i, v := range params {
		binary.LittleEndian.PutUint64(resp[1+i*8:9+i*8], uint64(v))
	}
	return statusOK, resp
}

func (s *Server) cmdScriptUpdate(hdr RequestHeader, ext []byte) (int32, []byte) {
	params := make([]int64, len(ext)/8)
	for i := range params {
		params[i] = int64(binary.LittleEndian.Uint64(ext[i*8 : i*8+8]))
	}
	return statusOf(s.scripts.UpdateParams(hdr.P1, params)), nil
}

func (s *Server) cmdScriptDelete(sess *Session, hdr RequestHeader) (int32, []byte) {
	err := s.scripts.Delete(hdr.P1)
	s.scriptH.Release(handle.Handle(hdr.P1))
	sess.disown(handle.Handle(hdr.P1))
	return statusOf(err), nil
}

// ---- Notify / identity ----

// cmdNotifyOpen creates a notifier subscribed to every (chip, line) pair
// and binds it to a fresh FIFO on the daemon host (spec.md §4.4 "a
// notifier handle is bound to an open FIFO"); the path is returned as
// the response extension for the client to open for reading.
func (s *Server) cmdNotifyOpen(sess *Session, hdr RequestHeader) (int32, []byte) {
	n := s.dispatcher.NewNotifier(nil, 4096)
	h := s.notifyH.Alloc(&notifyHandle{n: n}, sess.ShareID(), sess.User())
	path, err := s.makeNotifyFIFO(h)
	if err != nil {
		n.Close()
		s.notifyH.Release(h)
		return statusOf(err), nil
	}
	sess.own(h)
	sess.notifyPipePath = path
	go s.pumpNotifyFIFO(path, n)
	return statusOK, []byte(path)
}

func (s *Server) cmdSetUser(sess *Session, ext []byte) (int32, []byte) {
	parts := splitNameAndArg(ext)
	if len(parts) != 2 {
		return statusBadCommand, nil
	}
	if s.secrets != nil && !s.secrets.Verify(parts[0], parts[1]) {
		return statusNoPermission, nil
	}
	sess.SetUser(parts[0])
	return statusOK, nil
}

// cmdUseShareID sets the share-id this session files its new handles
// under (spec.md §9 "Share-id"). The handle registries don't gate Resolve by owner or share-id today
// (see DESIGN.md), so this only affects which share-id new handles from
// this session are filed under.
func (s *Server) cmdUseShareID(sess *Session, ext []byte) (int32, []byte) {
	sess.SetShareID(string(ext))
	return statusOK, nil
}
