//go:build linux

// Package i2cbus implements spec.md §4.6's I²C adapter: write_quick,
// read/write_byte, read/write_word, and SMBus block transfers over
// /dev/i2c-N, unified under one handle per opened (bus, address) pair.
// The I2C_SLAVE/I2C_SMBUS ioctl pair is grounded the same way the
// retrieved lepton-bus.go reference reaches for i2c-dev: a raw
// unix.Syscall(SYS_IOCTL) against a directly modelled kernel struct,
// since golang.org/x/sys/unix does not ship the i2c-dev SMBus ABI.
package i2cbus

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
	"github.com/sbcgo/rgpiod/x/conv"
	"github.com/sbcgo/rgpiod/x/mathx"
)

const (
	i2cSlave = 0x0703
	i2cSMBus = 0x0720

	smbusRead  = 1
	smbusWrite = 0

	smbusQuick    = 0
	smbusByte     = 1
	smbusByteData = 2
	smbusWordData = 3
	smbusBlockData = 5

	maxBlockLen = 32
)

type smbusIoctlData struct {
	ReadWrite uint8
	Command   uint8
	Size      uint32
	Data      unsafe.Pointer
}

// Device is one claimed I²C address on one bus.
type Device struct {
	f    *os.File
	addr int
}

// Open claims address addr (0..127) on busNum (spec.md §4.6: "address
// 0..127").
func Open(busNum, addr int) (*Device, error) {
	if !mathx.Between(addr, 0, 127) {
		return nil, gpioerr.BadI2cAddr
	}
	var numBuf [20]byte
	path := "/dev/i2c-" + string(conv.Utoa(numBuf[:], uint64(busNum)))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, gpioerr.Wrap("i2c_open", gpioerr.I2cOpenFailed, err)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), i2cSlave, uintptr(addr)); errno != 0 {
		f.Close()
		return nil, gpioerr.Wrap("i2c_open", gpioerr.I2cOpenFailed, errno)
	}
	return &Device{f: f, addr: addr}, nil
}

func (d *Device) Close() error { return d.f.Close() }

func (d *Device) ioctl(readWrite uint8, command uint8, size uint32, data unsafe.Pointer) error {
	args := smbusIoctlData{ReadWrite: readWrite, Command: command, Size: size, Data: data}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), i2cSMBus, uintptr(unsafe.Pointer(&args))); errno != 0 {
		return errno
	}
	return nil
}

// WriteQuick implements write_quick: bit in {0,1}.
func (d *Device) WriteQuick(bit uint8) error {
	if bit > 1 {
		return gpioerr.BadI2cParam
	}
	if err := d.ioctl(bit, 0, smbusQuick, nil); err != nil {
		return gpioerr.Wrap("write_quick", gpioerr.BadI2cParam, err)
	}
	return nil
}

// WriteByte implements write_byte: value <= 255.
func (d *Device) WriteByte(value uint16) error {
	if value > 255 {
		return gpioerr.BadI2cParam
	}
	if err := d.ioctl(smbusWrite, uint8(value), smbusByte, nil); err != nil {
		return gpioerr.Wrap("write_byte", gpioerr.BadI2cParam, err)
	}
	return nil
}

// ReadByte implements read_byte.
func (d *Device) ReadByte() (uint8, error) {
	var data [34]byte
	if err := d.ioctl(smbusRead, 0, smbusByte, unsafe.Pointer(&data[0])); err != nil {
		return 0, gpioerr.Wrap("read_byte", gpioerr.BadI2cParam, err)
	}
	return data[0], nil
}

// WriteWord implements write_word: value <= 65535.
func (d *Device) WriteWord(reg uint8, value uint32) error {
	if value > 65535 {
		return gpioerr.BadI2cParam
	}
	var data [34]byte
	data[0] = byte(value)
	data[1] = byte(value >> 8)
	if err := d.ioctl(smbusWrite, reg, smbusWordData, unsafe.Pointer(&data[0])); err != nil {
		return gpioerr.Wrap("write_word", gpioerr.BadI2cParam, err)
	}
	return nil
}

// ReadWord implements read_word.
func (d *Device) ReadWord(reg uint8) (uint16, error) {
	var data [34]byte
	if err := d.ioctl(smbusRead, reg, smbusWordData, unsafe.Pointer(&data[0])); err != nil {
		return 0, gpioerr.Wrap("read_word", gpioerr.BadI2cParam, err)
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

// WriteBlock implements the SMBus block-data write: 1..32 bytes.
func (d *Device) WriteBlock(reg uint8, block []byte) error {
	if !mathx.Between(len(block), 1, maxBlockLen) {
		return gpioerr.BadI2cParam
	}
	var data [34]byte
	data[0] = byte(len(block))
	copy(data[1:], block)
	if err := d.ioctl(smbusWrite, reg, smbusBlockData, unsafe.Pointer(&data[0])); err != nil {
		return gpioerr.Wrap("write_block", gpioerr.BadI2cParam, err)
	}
	return nil
}

// ReadBlock implements the SMBus block-data read.
func (d *Device) ReadBlock(reg uint8) ([]byte, error) {
	var data [34]byte
	if err := d.ioctl(smbusRead, reg, smbusBlockData, unsafe.Pointer(&data[0])); err != nil {
		return nil, gpioerr.Wrap("read_block", gpioerr.BadI2cParam, err)
	}
	n := int(data[0])
	if n > maxBlockLen {
		n = maxBlockLen
	}
	out := make([]byte, n)
	copy(out, data[1:1+n])
	return out, nil
}
