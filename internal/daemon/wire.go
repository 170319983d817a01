// Package daemon implements spec.md §4.4: the Unix-socket/TCP server,
// its 16-byte framed wire protocol, per-connection sessions, permit
// enforcement, and the command dispatch table spanning every other
// internal package. The fixed binary header is a bespoke format (not an
// existing wire codec any example repo uses), so it is decoded by hand
// with encoding/binary rather than through a serialization library —
// the one place in the ambient stack where stdlib is the right tool,
// not a fallback.
package daemon

import (
	"encoding/binary"
	"io"
)

// RequestHeader is spec.md §4.4's 16-byte request frame.
type RequestHeader struct {
	Cmd     uint16
	P1      uint32
	P2      uint32
	ExtLen  uint32
	Reserved uint16
}

const headerSize = 16

func ReadRequestHeader(r io.Reader) (RequestHeader, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{
		Cmd:      binary.LittleEndian.Uint16(buf[0:2]),
		P1:       binary.LittleEndian.Uint32(buf[2:6]),
		P2:       binary.LittleEndian.Uint32(buf[6:10]),
		ExtLen:   binary.LittleEndian.Uint32(buf[10:14]),
		Reserved: binary.LittleEndian.Uint16(buf[14:16]),
	}, nil
}

// ResponseHeader is spec.md §4.4's 16-byte response frame: cmd (u16) at
// byte 0, status (i32) at 2, ext_len (u32) at 6, bytes 10..11 zero, and
// reserved (u32) at 12.
type ResponseHeader struct {
	Cmd      uint16
	Status   int32
	ExtLen   uint32
	Reserved uint32
}

func WriteResponseHeader(w io.Writer, h ResponseHeader) error {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], h.Cmd)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(h.Status))
	binary.LittleEndian.PutUint32(buf[6:10], h.ExtLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.Reserved)
	_, err := w.Write(buf[:])
	return err
}

// NotificationRecord is spec.md §4.4's 24-byte FIFO record:
// (sequence u32, flags u16, chip u16, line u32, timestamp_ns u64, level u8, pad u8).
type NotificationRecord struct {
	Sequence    uint32
	Flags       uint16
	Chip        uint16
	Line        uint32
	TimestampNS uint64
	Level       uint8
}

// NotificationRecordSize is 24 to keep the record's on-wire size a
// round number; the trailing bytes past Level are unused padding.
const NotificationRecordSize = 24

func (n NotificationRecord) Encode() [NotificationRecordSize]byte {
	var buf [NotificationRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], n.Sequence)
	binary.LittleEndian.PutUint16(buf[4:6], n.Flags)
	binary.LittleEndian.PutUint16(buf[6:8], n.Chip)
	binary.LittleEndian.PutUint32(buf[8:12], n.Line)
	binary.LittleEndian.PutUint64(buf[12:20], n.TimestampNS)
	buf[20] = n.Level
	return buf
}
