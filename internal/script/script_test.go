package script

import (
	"testing"
	"time"
)

type fakeIO struct {
	lines map[uint32]bool
}

func newFakeIO() *fakeIO { return &fakeIO{lines: map[uint32]bool{}} }

func (f *fakeIO) Read(offset uint32) (bool, error) { return f.lines[offset], nil }
func (f *fakeIO) Write(offset uint32, level bool) error {
	f.lines[offset] = level
	return nil
}

func waitState(t *testing.T, s *Script, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, s.State())
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	if _, err := Parse("bogus v0, 1, 2"); err == nil {
		t.Fatal("expected an unknown opcode to fail to parse")
	}
}

func TestParseRejectsUnresolvedLabel(t *testing.T) {
	if _, err := Parse("jmp nowhere"); err == nil {
		t.Fatal("expected a jump to an undefined tag to fail to parse")
	}
}

func TestParseRejectsOutOfRangeVar(t *testing.T) {
	if _, err := Parse("mov v999, 1"); err == nil {
		t.Fatal("expected an out-of-range variable index to fail to parse")
	}
}

func TestParseResolvesForwardLabel(t *testing.T) {
	prog, err := Parse(`
jmp skip
mov v0, 99
tag skip
mov v1, 1
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Instructions) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(prog.Instructions))
	}
	if prog.Instructions[0].Target != 2 {
		t.Fatalf("expected jmp to resolve to index 2, got %d", prog.Instructions[0].Target)
	}
}

func TestExecuteArithmeticAndHalt(t *testing.T) {
	prog, err := Parse(`
mov v0, 2
mov v1, 3
add v2, v0, v1
halt
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := newScript(prog, nil)
	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, Halted)
	if s.vars[2] != 5 {
		t.Fatalf("expected v2 == 5, got %d", s.vars[2])
	}
}

func TestExecuteDivideByZeroFails(t *testing.T) {
	prog, err := Parse("div v0, 10, v1\nhalt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := newScript(prog, nil)
	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, Failed)
}

func TestExecuteParamsAndGpio(t *testing.T) {
	prog, err := Parse(`
gpio_write p0, p1
gpio_read v0, p0
halt
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	io := newFakeIO()
	s := newScript(prog, io)
	if err := s.Run([]int64{4, 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, Halted)
	if !io.lines[4] {
		t.Fatal("expected gpio_write to have set line 4 high")
	}
	if s.vars[0] != 1 {
		t.Fatalf("expected gpio_read back into v0 to be 1, got %d", s.vars[0])
	}
}

func TestStopCancelsSleepingScript(t *testing.T) {
	prog, err := Parse("mils 1000\nhalt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := newScript(prog, nil)
	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, Waiting)
	s.Stop()
	waitState(t, s, Halted)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(newFakeIO())
	if err := m.Store(1, "mov v0, 7\nhalt"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := m.Run(1, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st, _, err := m.Status(1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	_ = st

	if err := m.UpdateParams(1, []int64{3}); err != nil {
		t.Fatalf("UpdateParams: %v", err)
	}
	if err := m.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := m.Status(1); err == nil {
		t.Fatal("expected status on a deleted script to fail")
	}
}

func TestManagerRunUnknownScript(t *testing.T) {
	m := NewManager(nil)
	if err := m.Run(42, nil); err == nil {
		t.Fatal("expected running an unstored script id to fail")
	}
}
