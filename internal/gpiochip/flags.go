package gpiochip

import "github.com/sbcgo/rgpiod/internal/gpioerr"

// Flags is the validated bitmap from spec.md §4.1 ("Flags form a
// validated bitmap; mutually exclusive bits... fail with BadFlags").
type Flags uint32

const (
	FlagActiveLow Flags = 1 << iota
	FlagOpenDrain
	FlagOpenSource
	FlagPullUp
	FlagPullDown
	FlagPullNone
)

// Validate rejects mutually exclusive combinations.
func (f Flags) Validate() error {
	if f&FlagOpenDrain != 0 && f&FlagOpenSource != 0 {
		return gpioerr.BadFlags
	}
	pulls := 0
	for _, b := range []Flags{FlagPullUp, FlagPullDown, FlagPullNone} {
		if f&b != 0 {
			pulls++
		}
	}
	if pulls > 1 {
		return gpioerr.BadFlags
	}
	return nil
}

func (f Flags) kernelBits(dir uint64) uint64 {
	bits := dir
	if f&FlagActiveLow != 0 {
		bits |= gpioV2LineFlagActiveLow
	}
	if f&FlagOpenDrain != 0 {
		bits |= gpioV2LineFlagOpenDrain
	}
	if f&FlagOpenSource != 0 {
		bits |= gpioV2LineFlagOpenSource
	}
	if f&FlagPullUp != 0 {
		bits |= gpioV2LineFlagBiasPullUp
	}
	if f&FlagPullDown != 0 {
		bits |= gpioV2LineFlagBiasPullDown
	}
	return bits
}

// Edge selects which transitions an alert-mode line reports.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) kernelBits() uint64 {
	switch e {
	case EdgeRising:
		return gpioV2LineFlagEdgeRising
	case EdgeFalling:
		return gpioV2LineFlagEdgeFalling
	case EdgeBoth:
		return gpioV2LineFlagEdgeRising | gpioV2LineFlagEdgeFalling
	default:
		return 0
	}
}

// Mode is the group-level mode (spec.md §3 LineGroup.mode).
type Mode uint8

const (
	ModeInput Mode = iota
	ModeOutput
	ModeAlert
)
