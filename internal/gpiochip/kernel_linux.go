//go:build linux

// Kernel GPIO character-device v2 ABI bindings. The ioctl struct layouts
// mirror <linux/gpio.h>; the encoding helpers follow the same _IOWR
// convention real userspace GPIO libraries use (see the gpiocdev/gpiod
// family retrieved alongside this spec) — golang.org/x/sys/unix supplies
// the raw Syscall/Ioctl plumbing, the struct layout is domain knowledge
// this package owns directly since x/sys does not ship the GPIO v2 ABI.
package gpiochip

import (
	"encoding/binary"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	gpioV2LinesMax  = 64
	gpioMaxNameSize = 32

	gpioIoctlMagic = 0xB4
)

// Line flag bits, struct gpio_v2_line_flag.
const (
	gpioV2LineFlagUsed          uint64 = 1 << 0
	gpioV2LineFlagActiveLow     uint64 = 1 << 1
	gpioV2LineFlagInput         uint64 = 1 << 2
	gpioV2LineFlagOutput        uint64 = 1 << 3
	gpioV2LineFlagEdgeRising    uint64 = 1 << 4
	gpioV2LineFlagEdgeFalling   uint64 = 1 << 5
	gpioV2LineFlagOpenDrain     uint64 = 1 << 6
	gpioV2LineFlagOpenSource    uint64 = 1 << 7
	gpioV2LineFlagBiasPullUp    uint64 = 1 << 8
	gpioV2LineFlagBiasPullDown  uint64 = 1 << 9
	gpioV2LineFlagBiasDisabled  uint64 = 1 << 10
	gpioV2LineFlagEventClockRT  uint64 = 1 << 11
)

// Line attribute ids, struct gpio_v2_line_attr_id.
const (
	gpioV2LineAttrIDFlags          uint32 = 1
	gpioV2LineAttrIDOutputValues   uint32 = 2
	gpioV2LineAttrIDDebouncePeriod uint32 = 3
)

// Line event ids, struct gpio_v2_line_event_id.
const (
	gpioV2LineEventRisingEdge  uint32 = 1
	gpioV2LineEventFallingEdge uint32 = 2
)

type gpioV2LineValues struct {
	Bits uint64
	Mask uint64
}

type gpioV2LineAttribute struct {
	ID      uint32
	Padding uint32
	Value   uint64 // flags | output values bitmap | debounce_period_us
}

type gpioV2LineConfigAttribute struct {
	Attr gpioV2LineAttribute
	Mask uint64
}

const gpioV2LineNumAttrsMax = 10

type gpioV2LineConfig struct {
	Flags      uint64
	NumAttrs   uint32
	Padding    [5]uint32
	Attrs      [gpioV2LineNumAttrsMax]gpioV2LineConfigAttribute
}

type gpioV2LineRequest struct {
	Offsets         [gpioV2LinesMax]uint32
	Consumer        [gpioMaxNameSize]byte
	Config          gpioV2LineConfig
	NumLines        uint32
	EventBufferSize uint32
	Padding         [5]uint32
	FD              int32
}

type gpioV2LineEvent struct {
	TimestampNS uint64
	ID          uint32
	Offset      uint32
	Seqno       uint32
	LineSeqno   uint32
	Padding     [6]uint32
}

type gpioChipInfo struct {
	Name  [32]byte
	Label [32]byte
	Lines uint32
}

// ioctl request-code construction, matching asm-generic/ioctl.h's _IOC:
// bits 0-7 nr, 8-15 type, 16-29 size, 30-31 dir.
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

func ior(nr, size uintptr) uintptr  { return ioc(iocRead, gpioIoctlMagic, nr, size) }
func iowr(nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, gpioIoctlMagic, nr, size) }

var (
	gpioGetChipInfoIoctl     = ior(0x01, unsafe.Sizeof(gpioChipInfo{}))
	gpioV2GetLineIoctl       = iowr(0x07, unsafe.Sizeof(gpioV2LineRequest{}))
	gpioV2LineSetConfigIoctl = iowr(0x0D, unsafe.Sizeof(gpioV2LineConfig{}))
	gpioV2LineGetValuesIoctl = iowr(0x0E, unsafe.Sizeof(gpioV2LineValues{}))
	gpioV2LineSetValuesIoctl = iowr(0x0F, unsafe.Sizeof(gpioV2LineValues{}))
)

func getChipInfo(chipFD int) (name, label string, lines uint32, err error) {
	var info gpioChipInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(chipFD), gpioGetChipInfoIoctl, uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return "", "", 0, errno
	}
	return cString(info.Name[:]), cString(info.Label[:]), info.Lines, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// openChipDevice opens the gpiochip character device for chipNum.
func openChipDevice(chipNum int) (*os.File, error) {
	return os.OpenFile(devicePath(chipNum), os.O_RDWR|unix.O_CLOEXEC, 0)
}

func devicePath(chipNum int) string {
	return "/dev/gpiochip" + itoa(chipNum)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// requestLines performs GPIO_V2_GET_LINE_IOCTL and returns the kernel fd
// for the resulting LineGroup, or an error. flags apply uniformly to every
// offset (spec.md's group-level flags bitmap); initial output values are
// supplied via outputValues (ignored for input/alert requests).
func requestLines(chipFD int, offsets []uint32, flags uint64, outputValues []bool, consumer string, eventBufferSize uint32) (int, error) {
	var req gpioV2LineRequest
	copy(req.Offsets[:], offsets)
	req.NumLines = uint32(len(offsets))
	copy(req.Consumer[:], consumer)
	req.EventBufferSize = eventBufferSize
	req.Config.Flags = flags

	if len(outputValues) > 0 {
		var bits, mask uint64
		for i, v := range outputValues {
			mask |= 1 << uint(i)
			if v {
				bits |= 1 << uint(i)
			}
		}
		req.Config.NumAttrs = 1
		req.Config.Attrs[0] = gpioV2LineConfigAttribute{
			Attr: gpioV2LineAttribute{ID: gpioV2LineAttrIDOutputValues, Value: bits},
			Mask: mask,
		}
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(chipFD), gpioV2GetLineIoctl, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return -1, errno
	}
	return int(req.FD), nil
}

func setLineConfig(groupFD int, flags uint64, outputValues []bool, debounceUS uint32, debounceMask uint64) error {
	var cfg gpioV2LineConfig
	cfg.Flags = flags
	idx := 0
	if len(outputValues) > 0 {
		var bits, mask uint64
		for i, v := range outputValues {
			mask |= 1 << uint(i)
			if v {
				bits |= 1 << uint(i)
			}
		}
		cfg.Attrs[idx] = gpioV2LineConfigAttribute{
			Attr: gpioV2LineAttribute{ID: gpioV2LineAttrIDOutputValues, Value: bits},
			Mask: mask,
		}
		idx++
	}
	if debounceMask != 0 {
		cfg.Attrs[idx] = gpioV2LineConfigAttribute{
			Attr: gpioV2LineAttribute{ID: gpioV2LineAttrIDDebouncePeriod, Value: uint64(debounceUS)},
			Mask: debounceMask,
		}
		idx++
	}
	cfg.NumAttrs = uint32(idx)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(groupFD), gpioV2LineSetConfigIoctl, uintptr(unsafe.Pointer(&cfg)))
	if errno != 0 {
		return errno
	}
	return nil
}

func getLineValues(groupFD int, mask uint64) (uint64, error) {
	vals := gpioV2LineValues{Mask: mask}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(groupFD), gpioV2LineGetValuesIoctl, uintptr(unsafe.Pointer(&vals)))
	if errno != 0 {
		return 0, errno
	}
	return vals.Bits, nil
}

func setLineValues(groupFD int, bits, mask uint64) error {
	vals := gpioV2LineValues{Bits: bits, Mask: mask}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(groupFD), gpioV2LineSetValuesIoctl, uintptr(unsafe.Pointer(&vals)))
	if errno != 0 {
		return errno
	}
	return nil
}

func closeFD(fd int) error {
	return unix.Close(fd)
}

// readLineEvent performs a blocking read of one gpio_v2_line_event from
// a LineGroup's event fd (only valid for alert-mode groups).
func readLineEvent(groupFD int) (gpioV2LineEvent, error) {
	var buf [unsafe.Sizeof(gpioV2LineEvent{})]byte
	n, err := unix.Read(groupFD, buf[:])
	if err != nil {
		return gpioV2LineEvent{}, err
	}
	if n < len(buf) {
		return gpioV2LineEvent{}, unix.EIO
	}
	ev := gpioV2LineEvent{
		TimestampNS: binary.LittleEndian.Uint64(buf[0:8]),
		ID:          binary.LittleEndian.Uint32(buf[8:12]),
		Offset:      binary.LittleEndian.Uint32(buf[12:16]),
		Seqno:       binary.LittleEndian.Uint32(buf[16:20]),
		LineSeqno:   binary.LittleEndian.Uint32(buf[20:24]),
	}
	return ev, nil
}
