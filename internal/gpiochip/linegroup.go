package gpiochip

// LineGroup is the kernel-granted unit from spec.md §3: an ordered
// sequence of line offsets claimed together, sharing one fd.
type LineGroup struct {
	FirstLine uint32
	Offsets   []uint32
	FD        int
	Mode      Mode
	Flags     Flags
	LCBs      []*LCB // indexed by position within the group
}

func (g *LineGroup) posOf(offset uint32) (int, bool) {
	for i, o := range g.Offsets {
		if o == offset {
			return i, true
		}
	}
	return 0, false
}
