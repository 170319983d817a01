package daemon

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestReadRequestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(42))       // Cmd
	binary.Write(&buf, binary.LittleEndian, uint32(100))      // P1
	binary.Write(&buf, binary.LittleEndian, uint32(200))      // P2
	binary.Write(&buf, binary.LittleEndian, uint32(8))        // ExtLen
	binary.Write(&buf, binary.LittleEndian, uint16(0))        // Reserved

	hdr, err := ReadRequestHeader(&buf)
	if err != nil {
		t.Fatalf("ReadRequestHeader: %v", err)
	}
	if hdr.Cmd != 42 || hdr.P1 != 100 || hdr.P2 != 200 || hdr.ExtLen != 8 {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestReadRequestHeaderShortRead(t *testing.T) {
	buf := bytes.NewReader([]byte{1, 2, 3})
	if _, err := ReadRequestHeader(buf); err == nil {
		t.Fatal("expected error reading a truncated header")
	}
}

func TestWriteResponseHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	h := ResponseHeader{Cmd: 7, Status: -3, ExtLen: 16, Reserved: 0}
	if err := WriteResponseHeader(&buf, h); err != nil {
		t.Fatalf("WriteResponseHeader: %v", err)
	}
	out := buf.Bytes()
	if len(out) != headerSize {
		t.Fatalf("expected %d bytes, got %d", headerSize, len(out))
	}
	if got := binary.LittleEndian.Uint16(out[0:2]); got != 7 {
		t.Errorf("cmd: got %d, want 7", got)
	}
	if got := int32(binary.LittleEndian.Uint32(out[2:6])); got != -3 {
		t.Errorf("status: got %d, want -3", got)
	}
	if got := binary.LittleEndian.Uint32(out[6:10]); got != 16 {
		t.Errorf("extlen: got %d, want 16", got)
	}
}

func TestNotificationRecordEncode(t *testing.T) {
	rec := NotificationRecord{
		Sequence:    12,
		Flags:       notifyFlagOverflow,
		Chip:        3,
		Line:        9,
		TimestampNS: 0x0102030405060708,
		Level:       1,
	}
	buf := rec.Encode()
	if len(buf) != NotificationRecordSize {
		t.Fatalf("expected %d bytes, got %d", NotificationRecordSize, len(buf))
	}
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != 12 {
		t.Errorf("sequence: got %d, want 12", got)
	}
	if got := binary.LittleEndian.Uint16(buf[4:6]); got != notifyFlagOverflow {
		t.Errorf("flags: got %d, want %d", got, notifyFlagOverflow)
	}
	if got := binary.LittleEndian.Uint16(buf[6:8]); got != 3 {
		t.Errorf("chip: got %d, want 3", got)
	}
	if got := binary.LittleEndian.Uint32(buf[8:12]); got != 9 {
		t.Errorf("line: got %d, want 9", got)
	}
	if got := binary.LittleEndian.Uint64(buf[12:20]); got != 0x0102030405060708 {
		t.Errorf("timestamp: got %#x, want %#x", got, uint64(0x0102030405060708))
	}
	if buf[20] != 1 {
		t.Errorf("level: got %d, want 1", buf[20])
	}
}
