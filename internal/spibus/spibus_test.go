//go:build linux

package spibus

import "testing"

func TestXferRejectsMismatchedLengths(t *testing.T) {
	d := &Device{}
	if err := d.Xfer(make([]byte, 4), make([]byte, 5)); err == nil {
		t.Fatal("expected mismatched tx/rx lengths to be rejected")
	}
}

func TestXferRejectsEmptyBuffers(t *testing.T) {
	d := &Device{}
	if err := d.Xfer(nil, nil); err == nil {
		t.Fatal("expected an empty transfer to be rejected")
	}
}

func TestWriteRejectsOversizeBuffer(t *testing.T) {
	d := &Device{}
	if err := d.Write(make([]byte, maxTransferCount+1)); err == nil {
		t.Fatal("expected a write larger than maxTransferCount to be rejected")
	}
}

func TestReadRejectsEmptyBuffer(t *testing.T) {
	d := &Device{}
	if err := d.Read(nil); err == nil {
		t.Fatal("expected an empty read buffer to be rejected")
	}
}

func TestIocDirectionBitsDiffer(t *testing.T) {
	w := iow(1, 1)
	r := ior(1, 1)
	mask := uintptr(0x3) << iocDirShift
	if w&mask == r&mask {
		t.Fatal("iow and ior should set different direction bits")
	}
}

func TestSpiIOCMessageScalesWithCount(t *testing.T) {
	one := spiIOCMessage(1)
	two := spiIOCMessage(2)
	sizeMask := uintptr(0x3FFF) << iocSizeShift
	if one&sizeMask == two&sizeMask {
		t.Fatal("spiIOCMessage should encode a larger size field for more transfers")
	}
}
