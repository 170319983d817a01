//go:build linux

package gpiochip

import "testing"

func TestIocEncodesFieldsInNonOverlappingPositions(t *testing.T) {
	got := ioc(iocRead, gpioIoctlMagic, 0x07, 0x20)

	if nr := (got >> iocNRShift) & 0xFF; nr != 0x07 {
		t.Errorf("nr: got %#x, want 0x07", nr)
	}
	if typ := (got >> iocTypeShift) & 0xFF; typ != gpioIoctlMagic {
		t.Errorf("type: got %#x, want %#x", typ, uintptr(gpioIoctlMagic))
	}
	if size := (got >> iocSizeShift) & 0x3FFF; size != 0x20 {
		t.Errorf("size: got %#x, want 0x20", size)
	}
	if dir := (got >> iocDirShift) & 0x3; dir != iocRead {
		t.Errorf("dir: got %#x, want %#x", dir, uintptr(iocRead))
	}
}

func TestIowrSetsBothDirectionBits(t *testing.T) {
	got := iowr(0x07, 8)
	dir := (got >> iocDirShift) & 0x3
	if dir != (iocRead | iocWrite) {
		t.Errorf("expected read|write direction bits, got %#x", dir)
	}
}

func TestIorAndIowrDifferOnlyInDirection(t *testing.T) {
	r := ior(0x05, 16)
	wr := iowr(0x05, 16)
	mask := uintptr(0x3) << iocDirShift
	if r&^mask != wr&^mask {
		t.Fatal("ior and iowr should agree outside the direction bits")
	}
	if r&mask == wr&mask {
		t.Fatal("ior and iowr should differ in the direction bits")
	}
}
