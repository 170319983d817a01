//go:build linux

package i2cbus

import "testing"

func TestOpenRejectsOutOfRangeAddress(t *testing.T) {
	if _, err := Open(1, 200); err == nil {
		t.Fatal("expected an address above 127 to be rejected before opening the device")
	}
	if _, err := Open(1, -1); err == nil {
		t.Fatal("expected a negative address to be rejected before opening the device")
	}
}

func TestWriteQuickRejectsNonBit(t *testing.T) {
	d := &Device{}
	if err := d.WriteQuick(2); err == nil {
		t.Fatal("expected a bit value other than 0/1 to be rejected")
	}
}

func TestWriteByteRejectsOutOfRange(t *testing.T) {
	d := &Device{}
	if err := d.WriteByte(256); err == nil {
		t.Fatal("expected a value above 255 to be rejected")
	}
}

func TestWriteWordRejectsOutOfRange(t *testing.T) {
	d := &Device{}
	if err := d.WriteWord(0, 70000); err == nil {
		t.Fatal("expected a value above 65535 to be rejected")
	}
}

func TestWriteBlockRejectsBadLength(t *testing.T) {
	d := &Device{}
	if err := d.WriteBlock(0, nil); err == nil {
		t.Fatal("expected an empty block to be rejected")
	}
	big := make([]byte, maxBlockLen+1)
	if err := d.WriteBlock(0, big); err == nil {
		t.Fatal("expected a block over 32 bytes to be rejected")
	}
}

