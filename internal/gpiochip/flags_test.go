package gpiochip

import "testing"

func TestFlagsValidateRejectsOpenDrainAndOpenSource(t *testing.T) {
	f := FlagOpenDrain | FlagOpenSource
	if err := f.Validate(); err == nil {
		t.Fatal("expected open-drain + open-source to be rejected")
	}
}

func TestFlagsValidateRejectsMultiplePulls(t *testing.T) {
	f := FlagPullUp | FlagPullDown
	if err := f.Validate(); err == nil {
		t.Fatal("expected pull-up + pull-down to be rejected")
	}
}

func TestFlagsValidateAcceptsSinglePull(t *testing.T) {
	f := FlagActiveLow | FlagPullUp
	if err := f.Validate(); err != nil {
		t.Fatalf("expected active-low + pull-up to be valid, got %v", err)
	}
}

func TestFlagsValidateAcceptsEmpty(t *testing.T) {
	if err := Flags(0).Validate(); err != nil {
		t.Fatalf("expected zero flags to be valid, got %v", err)
	}
}

func TestEdgeKernelBits(t *testing.T) {
	if EdgeNone.kernelBits() != 0 {
		t.Error("EdgeNone should contribute no kernel bits")
	}
	if EdgeRising.kernelBits()&gpioV2LineFlagEdgeRising == 0 {
		t.Error("EdgeRising should set the rising bit")
	}
	if EdgeFalling.kernelBits()&gpioV2LineFlagEdgeFalling == 0 {
		t.Error("EdgeFalling should set the falling bit")
	}
	both := EdgeBoth.kernelBits()
	if both&gpioV2LineFlagEdgeRising == 0 || both&gpioV2LineFlagEdgeFalling == 0 {
		t.Error("EdgeBoth should set both rising and falling bits")
	}
}

func TestFlagsKernelBits(t *testing.T) {
	bits := FlagActiveLow.kernelBits(0)
	if bits&gpioV2LineFlagActiveLow == 0 {
		t.Error("FlagActiveLow should set the active-low kernel bit")
	}
	pullUp := FlagPullUp.kernelBits(0)
	if pullUp&gpioV2LineFlagBiasPullUp == 0 {
		t.Error("FlagPullUp should set the bias-pull-up kernel bit")
	}
}
