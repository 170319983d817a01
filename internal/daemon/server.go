//go:build linux

package daemon

import (
	"encoding/binary"
	"log"
	"net"
	"os"
	"os/exec"
	"sync"

	"github.com/google/shlex"

	"github.com/sbcgo/rgpiod/internal/filebus"
	"github.com/sbcgo/rgpiod/internal/gpioerr"
	"github.com/sbcgo/rgpiod/internal/gpiochip"
	"github.com/sbcgo/rgpiod/internal/handle"
	"github.com/sbcgo/rgpiod/internal/i2cbus"
	"github.com/sbcgo/rgpiod/internal/permit"
	"github.com/sbcgo/rgpiod/internal/report"
	"github.com/sbcgo/rgpiod/internal/script"
	"github.com/sbcgo/rgpiod/internal/serialbus"
	"github.com/sbcgo/rgpiod/internal/spibus"
)

// Config governs the single daemon binary's behaviour (spec.md §6 "CLI
// surface").
type Config struct {
	BindAddr        string
	ShellDir        string
	NotifyDir       string
	DefaultCommands map[int]bool
	SBCName         string
}

// Server is the rgpiod process: every open chip, every bus-adapter
// handle registry, the report dispatcher, the permit table, and the
// script manager, behind one dispatch table driven by the wire
// protocol (spec.md §4.4).
type Server struct {
	cfg Config

	mu       sync.Mutex
	chips    map[uint16]*gpiochip.Chip
	nextChip uint16

	chipH   *handle.Registry
	i2cH    *handle.Registry
	spiH    *handle.Registry
	serialH *handle.Registry
	fileH   *handle.Registry
	notifyH *handle.Registry
	scriptH *handle.Registry

	dispatcher *report.Dispatcher
	scripts    *script.Manager
	permits    *permit.Table
	secrets    *permit.Secrets
}

type i2cHandle struct {
	dev  *i2cbus.Device
	bus  int
	addr int
}

type spiHandle struct{ dev *spibus.Device }

type serialHandle struct{ port *serialbus.Port }

type fileHandle struct{ f *filebus.File }

type notifyHandle struct{ n *report.Notifier }

func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		chips:      map[uint16]*gpiochip.Chip{},
		chipH:      handle.NewRegistry(handle.KindChip),
		i2cH:       handle.NewRegistry(handle.KindI2C),
		spiH:       handle.NewRegistry(handle.KindSPI),
		serialH:    handle.NewRegistry(handle.KindSerial),
		fileH:      handle.NewRegistry(handle.KindFile),
		notifyH:    handle.NewRegistry(handle.KindNotify),
		scriptH:    handle.NewRegistry(handle.KindScript),
		dispatcher: report.NewDispatcher(),
	}
	s.scripts = script.NewManager(scriptGpio{s})
	return s
}

// scriptGpio adapts Server to script.GpioIO without the script package
// importing gpiochip (it takes a chip id folded into the offset's
// high bits: chip in bits 16..31, offset in bits 0..15).
type scriptGpio struct{ s *Server }

func (g scriptGpio) Read(packed uint32) (bool, error) {
	chip, offset := g.s.unpackLine(packed)
	c, err := g.s.chip(chip)
	if err != nil {
		return false, err
	}
	return c.Read(offset)
}

func (g scriptGpio) Write(packed uint32, level bool) error {
	chip, offset := g.s.unpackLine(packed)
	c, err := g.s.chip(chip)
	if err != nil {
		return err
	}
	return c.Write(offset, level)
}

func (s *Server) unpackLine(packed uint32) (uint16, uint32) {
	return uint16(packed >> 16), packed & 0xFFFF
}

func (s *Server) chip(id uint16) (*gpiochip.Chip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chips[id]
	if !ok {
		return nil, gpioerr.CannotOpenChip
	}
	return c, nil
}

// LoadPermits wires the permit file and secrets file into the server
// (spec.md §6).
func (s *Server) LoadPermits(permitPath, secretsPath string) error {
	t, err := permit.Load(permitPath)
	if err != nil {
		return err
	}
	s.permits = t
	if secretsPath != "" {
		sec, err := permit.LoadSecrets(secretsPath)
		if err != nil {
			return err
		}
		s.secrets = sec
	}
	return nil
}

// Serve accepts connections on ln, serving each on its own goroutine,
// until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	sess := newSession()
	defer s.cleanupSession(sess)

	for {
		hdr, err := ReadRequestHeader(conn)
		if err != nil {
			return
		}
		ext := make([]byte, hdr.ExtLen)
		if hdr.ExtLen > 0 {
			if _, err := readFull(conn, ext); err != nil {
				return
			}
		}

		status, respExt := s.dispatch(sess, hdr, ext)
		resp := ResponseHeader{Cmd: hdr.Cmd, Status: status, ExtLen: uint32(len(respExt))}
		if err := WriteResponseHeader(conn, resp); err != nil {
			return
		}
		if len(respExt) > 0 {
			if _, err := conn.Write(respExt); err != nil {
				return
			}
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func statusOf(err error) int32 {
	if err == nil {
		return 0
	}
	log.Printf("daemon: %v", err)
	return -1
}

// dispatch runs the permit check then routes to the per-command
// handler. Every handler follows the same small convention: p1/p2 carry
// scalar parameters or a handle, the extension payload carries variable
// length data, and the returned []byte is the response extension.
func (s *Server) dispatch(sess *Session, hdr RequestHeader, ext []byte) (int32, []byte) {
	cmd := Cmd(hdr.Cmd)
	if s.permits != nil && !s.permits.AllowsCommand(sess.User(), int(cmd), s.cfg.DefaultCommands) {
		return statusNoPermission, nil
	}

	switch cmd {
	case CmdOpenChip:
		return s.cmdOpenChip(sess, hdr)
	case CmdCloseChip:
		return s.cmdCloseHandle(sess, hdr, s.chipH, func(r any) { s.closeChipResource(r) })
	case CmdClaimInput:
		return s.cmdClaimInput(sess, hdr, ext)
	case CmdClaimOutput:
		return s.cmdClaimOutput(sess, hdr, ext)
	case CmdClaimAlert:
		return s.cmdClaimAlert(sess, hdr, ext)
	case CmdGroupClaimInput:
		return s.cmdGroupClaimInput(sess, hdr, ext)
	case CmdGroupClaimOutput:
		return s.cmdGroupClaimOutput(sess, hdr, ext)
	case CmdFree:
		return s.cmdFree(hdr)
	case CmdRead:
		return s.cmdRead(hdr)
	case CmdWrite:
		return s.cmdWrite(hdr)
	case CmdGetChipInfo:
		return s.cmdGetChipInfo(hdr)
	case CmdGetLineInfo:
		return s.cmdGetLineInfo(hdr)
	case CmdGetChipCensus:
		return s.cmdGetChipCensus(hdr)
	case CmdSetDebounce:
		return s.cmdSetDebounce(hdr)
	case CmdSetWatchdog:
		return s.cmdSetWatchdog(hdr)
	case CmdTxPulse:
		return s.cmdTxPulse(hdr, ext)
	case CmdTxPWM:
		return s.cmdTxPWM(hdr, ext)
	case CmdTxServo:
		return s.cmdTxServo(hdr, ext)
	case CmdTxWave:
		return s.cmdTxWave(hdr, ext)
	case CmdTxStop:
		return s.cmdTxStop(hdr)
	case CmdTxBusy:
		return s.cmdTxBusy(hdr, ext)
	case CmdTxRoom:
		return s.cmdTxRoom(hdr)

	case CmdOpenI2C:
		return s.cmdOpenI2C(sess, hdr)
	case CmdCloseI2C:
		return s.cmdCloseHandle(sess, hdr, s.i2cH, func(r any) { r.(*i2cHandle).dev.Close() })
	case CmdI2CWriteQuick:
		return s.cmdI2CWriteQuick(hdr)
	case CmdI2CWriteByte:
		return s.cmdI2CWriteByte(hdr)
	case CmdI2CReadByte:
		return s.cmdI2CReadByte(hdr)
	case CmdI2CWriteWord:
		return s.cmdI2CWriteWord(hdr)
	case CmdI2CReadWord:
		return s.cmdI2CReadWord(hdr)
	case CmdI2CWriteBlock:
		return s.cmdI2CWriteBlock(hdr, ext)
	case CmdI2CReadBlock:
		return s.cmdI2CReadBlock(hdr)

	case CmdOpenSPI:
		return s.cmdOpenSPI(sess, hdr)
	case CmdCloseSPI:
		return s.cmdCloseHandle(sess, hdr, s.spiH, func(r any) { r.(*spiHandle).dev.Close() })
	case CmdSPIXfer:
		return s.cmdSPIXfer(hdr, ext)
	case CmdSPIRead:
		return s.cmdSPIRead(hdr)
	case CmdSPIWrite:
		return s.cmdSPIWrite(hdr, ext)

	case CmdOpenSerial:
		return s.cmdOpenSerial(sess, hdr, ext)
	case CmdCloseSerial:
		return s.cmdCloseHandle(sess, hdr, s.serialH, func(r any) { r.(*serialHandle).port.Close() })
	case CmdSerialWrite:
		return s.cmdSerialWrite(hdr, ext)
	case CmdSerialRead:
		return s.cmdSerialRead(hdr)

	case CmdOpenFile:
		return s.cmdOpenFile(sess, hdr, ext)
	case CmdCloseFile:
		return s.cmdCloseHandle(sess, hdr, s.fileH, func(r any) { r.(*fileHandle).f.Close() })
	case CmdFileRead:
		return s.cmdFileRead(hdr)
	case CmdFileWrite:
		return s.cmdFileWrite(hdr, ext)
	case CmdFileSeek:
		return s.cmdFileSeek(hdr)
	case CmdFileGlob:
		return s.cmdFileGlob(ext)

	case CmdScriptStore:
		return s.cmdScriptStore(sess, hdr, ext)
	case CmdScriptRun:
		return s.cmdScriptRun(hdr, ext)
	case CmdScriptStop:
		return s.cmdScriptStop(hdr)
	case CmdScriptStatus:
		return s.cmdScriptStatus(hdr)
	case CmdScriptUpdate:
		return s.cmdScriptUpdate(hdr, ext)
	case CmdScriptDelete:
		return s.cmdScriptDelete(sess, hdr)

	case CmdNotifyOpen:
		return s.cmdNotifyOpen(sess, hdr)
	case CmdNotifyPause:
		return s.cmdNotifySetPaused(hdr, true)
	case CmdNotifyResume:
		return s.cmdNotifySetPaused(hdr, false)
	case CmdNotifyClose:
		return s.cmdCloseHandle(sess, hdr, s.notifyH, func(r any) { r.(*notifyHandle).n.Close() })

	case CmdSetUser:
		return s.cmdSetUser(sess, ext)
	case CmdSetShareID:
		sess.SetShareID(string(ext))
		return 0, nil
	case CmdUseShareID:
		return s.cmdUseShareID(sess, ext)
	case CmdGetSBCName:
		return 0, []byte(s.cfg.SBCName)
	case CmdRGPIOVersion:
		return 0, []byte("rgpiod/1.0")
	case CmdShellExec:
		return s.cmdShellExec(sess, ext)
	}
	return statusBadCommand, nil
}

// Response status is 0 on success and negative on failure; the wire
// protocol distinguishes only a permission failure (-2) from every other
// failure (-1), so the specific gpioerr.Code travels in the server log,
// not the response.
const (
	statusOK            int32 = 0
	statusBadCommand    int32 = -1
	statusNoPermission  int32 = -2
)

func (s *Server) cleanupSession(sess *Session) {
	for _, h := range sess.OwnedHandles() {
		s.releaseHandle(h)
	}
}

func (s *Server) releaseHandle(h handle.Handle) {
	if h.Kind() == handle.KindScript {
		s.scripts.Delete(uint32(h))
		s.scriptH.Release(h)
		return
	}
	var reg *handle.Registry
	switch h.Kind() {
	case handle.KindChip:
		reg = s.chipH
	case handle.KindI2C:
		reg = s.i2cH
	case handle.KindSPI:
		reg = s.spiH
	case handle.KindSerial:
		reg = s.serialH
	case handle.KindFile:
		reg = s.fileH
	case handle.KindNotify:
		reg = s.notifyH
	default:
		return
	}
	res, err := reg.Resolve(h)
	if err == nil {
		s.closeResource(h.Kind(), res)
	}
	reg.Release(h)
}

func (s *Server) closeResource(kind handle.Kind, res any) {
	switch kind {
	case handle.KindChip:
		s.closeChipResource(res)
	case handle.KindI2C:
		res.(*i2cHandle).dev.Close()
	case handle.KindSPI:
		res.(*spiHandle).dev.Close()
	case handle.KindSerial:
		res.(*serialHandle).port.Close()
	case handle.KindFile:
		res.(*fileHandle).f.Close()
	case handle.KindNotify:
		res.(*notifyHandle).n.Close()
	}
}

func (s *Server) closeChipResource(res any) {
	id := res.(uint16)
	s.mu.Lock()
	c, ok := s.chips[id]
	delete(s.chips, id)
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

func (s *Server) cmdCloseHandle(sess *Session, hdr RequestHeader, reg *handle.Registry, closeFn func(any)) (int32, []byte) {
	h := handle.Handle(hdr.P1)
	res, err := reg.Resolve(h)
	if err != nil {
		return -1, nil
	}
	closeFn(res)
	reg.Release(h)
	sess.disown(h)
	return 0, nil
}

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func (s *Server) cmdNotifySetPaused(hdr RequestHeader, paused bool) (int32, []byte) {
	res, err := s.notifyH.Resolve(handle.Handle(hdr.P1))
	if err != nil {
		return statusOf(err), nil
	}
	nh := res.(*notifyHandle)
	if paused {
		nh.n.Pause()
	} else {
		nh.n.Resume()
	}
	return statusOK, nil
}

func openShellScript(dir, name string) (string, error) {
	path := dir + "/" + name
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) cmdShellExec(sess *Session, ext []byte) (int32, []byte) {
	parts := splitNameAndArg(ext)
	if len(parts) == 0 {
		return -1, nil
	}
	path, err := openShellScript(s.cfg.ShellDir, parts[0])
	if err != nil {
		return -1, nil
	}
	var args []string
	if len(parts) > 1 {
		args, err = shlex.Split(parts[1])
		if err != nil {
			return -1, nil
		}
	}
	cmd := exec.Command(path, args...)
	err = cmd.Run()
	code := 0
	if ee, ok := err.(*exec.ExitError); ok {
		code = ee.ExitCode()
	} else if err != nil {
		code = -1
	}
	result := (code << 8)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint32(resp, uint32(result))
	log.Printf("shell_exec %s -> %d", parts[0], code)
	return 0, resp
}

func splitNameAndArg(ext []byte) []string {
	s := string(ext)
	for i, c := range s {
		if c == 0 {
			return []string{s[:i], s[i+1:]}
		}
	}
	if s == "" {
		return nil
	}
	return []string{s}
}
