// Package script implements spec.md §4.5's script VM: a register
// machine assembled from a small line-oriented instruction language,
// one goroutine per running script, and the store/run/stop/status/
// update/delete lifecycle. The goroutine-per-unit-of-work shape and the
// cooperative cancellation flag checked at branches/sleeps follows the
// same pattern the teacher's services/hal worker pool and gpioirq
// worker use for long-lived background work.
package script

import (
	"strconv"
	"strings"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
)

const (
	MaxInstructions = 1024
	NumVars         = 150
	NumParams       = 10
	CallStackDepth  = 64
)

// Op is one VM opcode.
type Op uint8

const (
	OpNop Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpMov
	OpJmp
	OpJz
	OpJnz
	OpJm // jump if negative
	OpJp // jump if positive
	OpCall
	OpRet
	OpHalt
	OpMics
	OpMils
	OpGpioRead
	OpGpioWrite
)

// Operand is either a variable reference (v0..v149, p0..p9) or an
// immediate constant.
type Operand struct {
	IsVar      bool
	IsParam    bool
	Index      int
	Immediate  int64
}

// Instruction is one decoded VM instruction.
type Instruction struct {
	Op   Op
	Dst  Operand
	A, B Operand
	// Target is the resolved instruction index for jumps/calls; -1 until
	// label resolution runs.
	Target int
}

// Program is the output of Parse: a bounds-checked, label-resolved
// instruction list ready to run.
type Program struct {
	Instructions []Instruction
	Source       string
}

// Parse assembles source into a Program, validating instruction count
// and resolving tag labels (spec.md §4.5: "store(source) parses to
// bytecode, validates labels").
func Parse(source string) (*Program, error) {
	lines := strings.Split(source, "\n")
	labels := map[string]int{}
	var raw []rawLine

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if fields[0] == "tag" {
			if len(fields) != 2 {
				return nil, gpioerr.BadScript
			}
			labels[fields[1]] = len(raw)
			continue
		}
		raw = append(raw, rawLine{fields: fields})
		if len(raw) > MaxInstructions {
			return nil, gpioerr.BadScript
		}
	}

	prog := &Program{Source: source}
	for _, rl := range raw {
		instr, err := decode(rl.fields, labels)
		if err != nil {
			return nil, err
		}
		prog.Instructions = append(prog.Instructions, instr)
	}
	return prog, nil
}

type rawLine struct{ fields []string }

func decode(fields []string, labels map[string]int) (Instruction, error) {
	op, ok := opByName[fields[0]]
	if !ok {
		return Instruction{}, gpioerr.BadScript
	}
	args := fields[1:]
	instr := Instruction{Op: op, Target: -1}

	needJumpTarget := func(i int) error {
		if i >= len(args) {
			return gpioerr.BadScript
		}
		idx, ok := labels[args[i]]
		if !ok {
			return gpioerr.BadScript
		}
		instr.Target = idx
		return nil
	}

	switch op {
	case OpHalt, OpRet, OpNop:
		// no operands
	case OpJmp, OpCall:
		if err := needJumpTarget(0); err != nil {
			return Instruction{}, err
		}
	case OpJz, OpJnz, OpJm, OpJp:
		if len(args) != 2 {
			return Instruction{}, gpioerr.BadScript
		}
		a, err := parseOperand(args[0])
		if err != nil {
			return Instruction{}, err
		}
		instr.A = a
		if err := needJumpTarget(1); err != nil {
			return Instruction{}, err
		}
	case OpMics, OpMils:
		if len(args) != 1 {
			return Instruction{}, gpioerr.BadScript
		}
		a, err := parseOperand(args[0])
		if err != nil {
			return Instruction{}, err
		}
		instr.A = a
	case OpMov, OpGpioRead, OpGpioWrite:
		if len(args) != 2 {
			return Instruction{}, gpioerr.BadScript
		}
		dst, err := parseOperand(args[0])
		if err != nil {
			return Instruction{}, err
		}
		a, err := parseOperand(args[1])
		if err != nil {
			return Instruction{}, err
		}
		instr.Dst, instr.A = dst, a
	default: // binary arithmetic/logic ops: dst, a, b
		if len(args) != 3 {
			return Instruction{}, gpioerr.BadScript
		}
		dst, err := parseOperand(args[0])
		if err != nil {
			return Instruction{}, err
		}
		a, err := parseOperand(args[1])
		if err != nil {
			return Instruction{}, err
		}
		b, err := parseOperand(args[2])
		if err != nil {
			return Instruction{}, err
		}
		instr.Dst, instr.A, instr.B = dst, a, b
	}
	return instr, nil
}

var opByName = map[string]Op{
	"nop": OpNop, "add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv,
	"mod": OpMod, "and": OpAnd, "or": OpOr, "xor": OpXor, "shl": OpShl, "shr": OpShr,
	"mov": OpMov, "jmp": OpJmp, "jz": OpJz, "jnz": OpJnz, "jm": OpJm, "jp": OpJp,
	"call": OpCall, "ret": OpRet, "halt": OpHalt,
	"mics": OpMics, "mils": OpMils,
	"gpio_read": OpGpioRead, "gpio_write": OpGpioWrite,
}

func parseOperand(tok string) (Operand, error) {
	switch {
	case strings.HasPrefix(tok, "v"):
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n < 0 || n >= NumVars {
			return Operand{}, gpioerr.BadScript
		}
		return Operand{IsVar: true, Index: n}, nil
	case strings.HasPrefix(tok, "p"):
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n < 0 || n >= NumParams {
			return Operand{}, gpioerr.BadScript
		}
		return Operand{IsParam: true, Index: n}, nil
	default:
		n, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return Operand{}, gpioerr.BadScript
		}
		return Operand{Immediate: n}, nil
	}
}
