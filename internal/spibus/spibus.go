//go:build linux

// Package spibus implements spec.md §4.6's SPI adapter over
// /dev/spidevB.C: mode/speed/bits-per-word configuration and the
// SPI_IOC_MESSAGE transfer ioctl. The ioctl numbers are derived with the
// same asm-generic _IOC layout internal/gpiochip uses for the GPIO v2
// ABI, since golang.org/x/sys/unix does not carry the spidev struct
// definitions either; the struct shapes mirror the
// lepton-bus.go-style direct syscall.Syscall(SYS_IOCTL) idiom seen
// across the retrieved corpus.
package spibus

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
	"github.com/sbcgo/rgpiod/x/conv"
	"github.com/sbcgo/rgpiod/x/mathx"
)

const (
	spiMagic = 'k'

	maxTransferCount = 65536
)

const (
	iocNRShift   = 0
	iocTypeShift = iocNRShift + 8
	iocSizeShift = iocTypeShift + 8
	iocDirShift  = iocSizeShift + 14

	iocRead  = 2
	iocWrite = 1
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

func iow(nr, size uintptr) uintptr { return ioc(iocWrite, spiMagic, nr, size) }
func ior(nr, size uintptr) uintptr { return ioc(iocRead, spiMagic, nr, size) }

var (
	spiIOCWrMode        = iow(1, 1)
	spiIOCWrBitsPerWord = iow(3, 1)
	spiIOCWrMaxSpeedHz  = iow(4, 4)
)

func spiIOCMessage(n int) uintptr {
	return iow(0, uintptr(n)*unsafe.Sizeof(spiIOCTransfer{}))
}

// spiIOCTransfer mirrors struct spi_ioc_transfer from linux/spi/spidev.h.
type spiIOCTransfer struct {
	TxBuf       uint64
	RxBuf       uint64
	Len         uint32
	SpeedHz     uint32
	DelayUsecs  uint16
	BitsPerWord uint8
	CSChange    uint8
	TxNbits     uint8
	RxNbits     uint8
	WordDelay   uint8
	Pad         uint8
}

// Device is one opened SPI device node.
type Device struct {
	f *os.File
}

// Open opens /dev/spidevB.C and configures mode/bits/speed.
func Open(bus, cs int, mode uint8, bitsPerWord uint8, speedHz uint32) (*Device, error) {
	var busBuf, csBuf [20]byte
	path := "/dev/spidev" + string(conv.Utoa(busBuf[:], uint64(bus))) + "." + string(conv.Utoa(csBuf[:], uint64(cs)))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, gpioerr.Wrap("spi_open", gpioerr.SpiOpenFailed, err)
	}
	d := &Device{f: f}
	if err := d.setU8(spiIOCWrMode, mode); err != nil {
		f.Close()
		return nil, gpioerr.Wrap("spi_open", gpioerr.SpiOpenFailed, err)
	}
	if bitsPerWord != 0 {
		if err := d.setU8(spiIOCWrBitsPerWord, bitsPerWord); err != nil {
			f.Close()
			return nil, gpioerr.Wrap("spi_open", gpioerr.SpiOpenFailed, err)
		}
	}
	if speedHz != 0 {
		if err := d.setU32(spiIOCWrMaxSpeedHz, speedHz); err != nil {
			f.Close()
			return nil, gpioerr.Wrap("spi_open", gpioerr.SpiOpenFailed, err)
		}
	}
	return d, nil
}

func (d *Device) Close() error { return d.f.Close() }

func (d *Device) setU8(req uintptr, v uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) setU32(req uintptr, v uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Xfer implements xfer(tx, rx, n): equal-length full-duplex transfer
// (spec.md §4.6: "requires equal lengths").
func (d *Device) Xfer(tx, rx []byte) error {
	if len(tx) != len(rx) {
		return gpioerr.BadSpiCount
	}
	if !mathx.Between(len(tx), 1, maxTransferCount) {
		return gpioerr.BadSpiCount
	}
	t := spiIOCTransfer{
		TxBuf: uint64(uintptr(unsafe.Pointer(&tx[0]))),
		RxBuf: uint64(uintptr(unsafe.Pointer(&rx[0]))),
		Len:   uint32(len(tx)),
	}
	req := spiIOCMessage(1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(unsafe.Pointer(&t)))
	if errno != 0 {
		return gpioerr.Wrap("xfer", gpioerr.BadSpiCount, errno)
	}
	return nil
}

// Write implements the half-duplex write permitted by spec.md §4.6.
func (d *Device) Write(tx []byte) error {
	if !mathx.Between(len(tx), 1, maxTransferCount) {
		return gpioerr.BadSpiCount
	}
	t := spiIOCTransfer{TxBuf: uint64(uintptr(unsafe.Pointer(&tx[0]))), Len: uint32(len(tx))}
	req := spiIOCMessage(1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(unsafe.Pointer(&t)))
	if errno != 0 {
		return gpioerr.Wrap("write", gpioerr.BadSpiCount, errno)
	}
	return nil
}

// Read implements the half-duplex read permitted by spec.md §4.6.
func (d *Device) Read(rx []byte) error {
	if !mathx.Between(len(rx), 1, maxTransferCount) {
		return gpioerr.BadSpiCount
	}
	t := spiIOCTransfer{RxBuf: uint64(uintptr(unsafe.Pointer(&rx[0]))), Len: uint32(len(rx))}
	req := spiIOCMessage(1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(unsafe.Pointer(&t)))
	if errno != 0 {
		return gpioerr.Wrap("read", gpioerr.BadSpiCount, errno)
	}
	return nil
}
