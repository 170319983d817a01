//go:build linux

package serialbus

import "testing"

func TestOpenRejectsNonZeroFlags(t *testing.T) {
	if _, err := Open("/dev/null", 9600, 1); err == nil {
		t.Fatal("expected non-zero reserved flags to be rejected")
	}
}

func TestOpenRejectsUnlistedSpeed(t *testing.T) {
	if _, err := Open("/dev/null", 31337, 0); err == nil {
		t.Fatal("expected a speed outside the fixed set to be rejected")
	}
}

func TestAllowedSpeedsCoversStandardRates(t *testing.T) {
	for _, speed := range []uint32{1200, 9600, 19200, 38400, 115200} {
		if _, ok := allowedSpeeds[speed]; !ok {
			t.Errorf("expected %d to be an allowed speed", speed)
		}
	}
}
