//go:build linux

// Package serialbus implements spec.md §4.6's serial adapter: opening a
// tty device, setting one of a fixed set of baud rates via termios, and
// raw read/write. golang.org/x/sys/unix already exports the termios
// struct and TCGETS/TCSETS ioctl wrappers (IoctlGetTermios/SetTermios)
// and the Bnnn speed constants, the same fixed-speed-table approach the
// retrieved Daedaluz-goserial package reaches for with its own ioctl
// bindings — here the stdlib-adjacent x/sys/unix ones already cover it,
// so no bespoke ioctl struct is needed.
package serialbus

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
)

// allowedSpeeds is the fixed set from spec.md §4.6.
var allowedSpeeds = map[uint32]uint32{
	50: unix.B50, 75: unix.B75, 110: unix.B110, 134: unix.B134,
	150: unix.B150, 200: unix.B200, 300: unix.B300, 600: unix.B600,
	1200: unix.B1200, 1800: unix.B1800, 2400: unix.B2400, 4800: unix.B4800,
	9600: unix.B9600, 19200: unix.B19200, 38400: unix.B38400,
	57600: unix.B57600, 115200: unix.B115200, 230400: unix.B230400,
}

// Port is one opened tty device.
type Port struct {
	f  *os.File
	fd int
}

// Open opens path and configures speed (one of the fixed set) and flags
// (reserved, must be 0 per spec.md §4.6).
func Open(path string, speed uint32, flags uint32) (*Port, error) {
	if flags != 0 {
		return nil, gpioerr.BadSerialFlags
	}
	b, ok := allowedSpeeds[speed]
	if !ok {
		return nil, gpioerr.BadSerialSpeed
	}
	f, err := os.OpenFile(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, gpioerr.Wrap("serial_open", gpioerr.SerialOpenFailed, err)
	}
	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, gpioerr.Wrap("serial_open", gpioerr.SerialOpenFailed, err)
	}
	t.Cflag = unix.CREAD | unix.CLOCAL | unix.CS8
	t.Cflag |= b
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0
	t.Ispeed = b
	t.Ospeed = b
	for i := range t.Cc {
		t.Cc[i] = 0
	}
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		f.Close()
		return nil, gpioerr.Wrap("serial_open", gpioerr.SerialOpenFailed, err)
	}
	return &Port{f: f, fd: fd}, nil
}

func (p *Port) Close() error { return p.f.Close() }

func (p *Port) Write(b []byte) (int, error) {
	n, err := unix.Write(p.fd, b)
	if err != nil {
		return n, gpioerr.Wrap("serial_write", gpioerr.SerialOpenFailed, err)
	}
	return n, nil
}

func (p *Port) Read(b []byte) (int, error) {
	n, err := unix.Read(p.fd, b)
	if err != nil {
		return n, gpioerr.Wrap("serial_read", gpioerr.SerialOpenFailed, err)
	}
	return n, nil
}
