package script

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
)

// State is a script's lifecycle state (spec.md §4.5).
type State uint8

const (
	Initing State = iota
	Ready
	Running
	Waiting
	Halted
	Failed
)

// GpioIO is the bounded subset of §4.1/§4.2/§4.6 a script may call,
// supplied by the daemon so this package stays free of a gpiochip
// import (scripts run against whatever chip/line the daemon resolves
// their handle-typed parameters to).
type GpioIO interface {
	Read(offset uint32) (bool, error)
	Write(offset uint32, level bool) error
}

// Script is one stored/running VM instance.
type Script struct {
	mu     sync.Mutex
	prog   *Program
	vars   [NumVars]int64
	params [NumParams]int64
	state  atomic.Int32 // State
	pc     int

	cancel atomic.Bool
	done   chan struct{}

	io GpioIO
}

func newScript(prog *Program, io GpioIO) *Script {
	s := &Script{prog: prog, io: io}
	s.state.Store(int32(Ready))
	return s
}

func (s *Script) State() State { return State(s.state.Load()) }

// Snapshot returns the current state and parameter values for status().
func (s *Script) Snapshot() (State, [NumParams]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State(), s.params
}

// Update overwrites parameters without restarting (spec.md §4.5).
func (s *Script) Update(params []int64) error {
	if len(params) > NumParams {
		return gpioerr.BadScript
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range params {
		s.params[i] = v
	}
	return nil
}

// Stop sets the cooperative cancellation flag checked at every branch
// and sleep (spec.md §5 "Cancellation & timeouts").
func (s *Script) Stop() {
	s.cancel.Store(true)
}

// Run starts one goroutine executing the program from pc 0 with params
// copied into p0..p9 (spec.md §4.5: "run(handle, params) copies
// parameters into p0..p9 and schedules a thread").
func (s *Script) Run(params []int64) error {
	if s.State() == Running {
		return gpioerr.ScriptFailed
	}
	if len(params) > NumParams {
		return gpioerr.BadScript
	}
	s.mu.Lock()
	for i := range s.params {
		s.params[i] = 0
	}
	for i, v := range params {
		s.params[i] = v
	}
	s.pc = 0
	s.mu.Unlock()

	s.cancel.Store(false)
	s.state.Store(int32(Running))
	s.done = make(chan struct{})
	go s.execute()
	return nil
}

func (s *Script) execute() {
	defer close(s.done)
	var callStack [CallStackDepth]int
	sp := 0

	for {
		if s.cancel.Load() {
			s.state.Store(int32(Halted))
			return
		}
		s.mu.Lock()
		pc := s.pc
		if pc < 0 || pc >= len(s.prog.Instructions) {
			s.mu.Unlock()
			s.state.Store(int32(Halted))
			return
		}
		instr := s.prog.Instructions[pc]
		s.pc++
		next := s.pc
		var sleepMicros int64
		fail := false

		switch instr.Op {
		case OpNop:
		case OpAdd:
			s.setOperand(instr.Dst, s.getOperand(instr.A)+s.getOperand(instr.B))
		case OpSub:
			s.setOperand(instr.Dst, s.getOperand(instr.A)-s.getOperand(instr.B))
		case OpMul:
			s.setOperand(instr.Dst, s.getOperand(instr.A)*s.getOperand(instr.B))
		case OpDiv:
			b := s.getOperand(instr.B)
			if b == 0 {
				fail = true
				break
			}
			s.setOperand(instr.Dst, s.getOperand(instr.A)/b)
		case OpMod:
			b := s.getOperand(instr.B)
			if b == 0 {
				fail = true
				break
			}
			s.setOperand(instr.Dst, s.getOperand(instr.A)%b)
		case OpAnd:
			s.setOperand(instr.Dst, s.getOperand(instr.A)&s.getOperand(instr.B))
		case OpOr:
			s.setOperand(instr.Dst, s.getOperand(instr.A)|s.getOperand(instr.B))
		case OpXor:
			s.setOperand(instr.Dst, s.getOperand(instr.A)^s.getOperand(instr.B))
		case OpShl:
			s.setOperand(instr.Dst, s.getOperand(instr.A)<<uint(s.getOperand(instr.B)))
		case OpShr:
			s.setOperand(instr.Dst, s.getOperand(instr.A)>>uint(s.getOperand(instr.B)))
		case OpMov:
			s.setOperand(instr.Dst, s.getOperand(instr.A))
		case OpJmp:
			next = instr.Target
		case OpJz:
			if s.getOperand(instr.A) == 0 {
				next = instr.Target
			}
		case OpJnz:
			if s.getOperand(instr.A) != 0 {
				next = instr.Target
			}
		case OpJm:
			if s.getOperand(instr.A) < 0 {
				next = instr.Target
			}
		case OpJp:
			if s.getOperand(instr.A) > 0 {
				next = instr.Target
			}
		case OpCall:
			if sp >= CallStackDepth {
				fail = true
				break
			}
			callStack[sp] = next
			sp++
			next = instr.Target
		case OpRet:
			if sp == 0 {
				s.mu.Unlock()
				s.state.Store(int32(Halted))
				return
			}
			sp--
			next = callStack[sp]
		case OpHalt:
			s.mu.Unlock()
			s.state.Store(int32(Halted))
			return
		case OpMics:
			sleepMicros = s.getOperand(instr.A)
		case OpMils:
			sleepMicros = s.getOperand(instr.A) * 1000
		case OpGpioRead:
			if s.io == nil {
				fail = true
				break
			}
			v, err := s.io.Read(uint32(s.getOperand(instr.A)))
			if err != nil {
				fail = true
				break
			}
			if v {
				s.setOperand(instr.Dst, 1)
			} else {
				s.setOperand(instr.Dst, 0)
			}
		case OpGpioWrite:
			if s.io == nil {
				fail = true
				break
			}
			if err := s.io.Write(uint32(s.getOperand(instr.Dst)), s.getOperand(instr.A) != 0); err != nil {
				fail = true
			}
		}
		s.pc = next
		s.mu.Unlock()

		if fail {
			s.state.Store(int32(Failed))
			return
		}
		if sleepMicros > 0 {
			s.state.Store(int32(Waiting))
			if !s.sleep(time.Duration(sleepMicros) * time.Microsecond) {
				s.state.Store(int32(Halted))
				return
			}
			s.state.Store(int32(Running))
		}
	}
}

// sleep waits d, checking the cancel flag at a fine enough granularity
// that Stop's worst-case latency matches the longest single sleep
// (spec.md §5).
func (s *Script) sleep(d time.Duration) bool {
	const tick = 5 * time.Millisecond
	deadline := time.Now().Add(d)
	for {
		if s.cancel.Load() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > tick {
			time.Sleep(tick)
		} else {
			time.Sleep(remaining)
		}
	}
}

func (s *Script) getOperand(o Operand) int64 {
	switch {
	case o.IsVar:
		return s.vars[o.Index]
	case o.IsParam:
		return s.params[o.Index]
	default:
		return o.Immediate
	}
}

func (s *Script) setOperand(o Operand, v int64) {
	switch {
	case o.IsVar:
		s.vars[o.Index] = v
	case o.IsParam:
		s.params[o.Index] = v
	}
}

// Manager owns every stored Script, keyed by the handle the daemon
// allocated for it.
type Manager struct {
	mu   sync.Mutex
	byID map[uint32]*Script
	io   GpioIO
}

func NewManager(io GpioIO) *Manager {
	return &Manager{byID: map[uint32]*Script{}, io: io}
}

// Store implements store(source).
func (m *Manager) Store(id uint32, source string) error {
	prog, err := Parse(source)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = newScript(prog, m.io)
	return nil
}

func (m *Manager) get(id uint32) (*Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, gpioerr.BadHandle
	}
	return s, nil
}

func (m *Manager) Run(id uint32, params []int64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Run(params)
}

func (m *Manager) Stop(id uint32) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.Stop()
	return nil
}

func (m *Manager) Status(id uint32) (State, [NumParams]int64, error) {
	s, err := m.get(id)
	if err != nil {
		return 0, [NumParams]int64{}, err
	}
	st, params := s.Snapshot()
	return st, params, nil
}

func (m *Manager) UpdateParams(id uint32, params []int64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Update(params)
}

func (m *Manager) Delete(id uint32) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.Stop()
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
	return nil
}
