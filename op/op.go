// Package op defines the instruction alphabet executed by the stack machine
// and enumerated by the search.
package op

import (
	"fmt"
	"strings"
)

// Code is a single-symbol instruction.
type Code byte

const (
	Invalid Code = 0

	// Push
	PushZero  Code = 'A'
	Duplicate Code = 'Q'

	// Stack
	Pop  Code = 'B'
	Swap Code = 'L'

	// Binary operations. These push a new value and leave both operands
	// in place.
	Subtract Code = 'C'
	Modulo   Code = 'E'
	Add      Code = 'G'
	Multiply Code = 'M'
	Divide   Code = 'P'

	// Unary in-place deltas
	Decrement    Code = 'D'
	Increment    Code = 'I'
	AddFive      Code = 'V'
	SubtractFive Code = 'W'

	Nop Code = '~'
)

// Info contains information about an instruction.
type Info struct {
	Code Code
	Name string
	// MinStack is the number of stack elements the instruction requires.
	MinStack int
	// Grows is true if the instruction pushes a new element.
	Grows bool
	// NonZeroSecond is true if the element below the top must be non-zero.
	NonZeroSecond bool
	// Delta is the constant offset applied in place by the unary deltas.
	Delta float64
}

var infos [256]Info

func init() {
	type opInfo struct {
		op       Code
		name     string
		minStack int
		grows    bool
		nonZero  bool
		delta    float64
	}
	ops := []opInfo{
		{PushZero, "PUSH_ZERO", 0, true, false, 0},
		{Pop, "POP", 1, false, false, 0},
		{Subtract, "SUBTRACT_PUSH", 2, true, false, 0},
		{Modulo, "MODULO_PUSH", 2, true, true, 0},
		{Add, "ADD_PUSH", 2, true, false, 0},
		{Multiply, "MULTIPLY_PUSH", 2, true, false, 0},
		{Divide, "DIVIDE_PUSH", 2, true, true, 0},
		{Decrement, "DECREMENT", 1, false, false, -1},
		{Increment, "INCREMENT", 1, false, false, 1},
		{AddFive, "ADD_FIVE", 1, false, false, 5},
		{SubtractFive, "SUBTRACT_FIVE", 1, false, false, -5},
		{Swap, "SWAP", 2, false, false, 0},
		{Duplicate, "DUPLICATE", 1, true, false, 0},
		{Nop, "NOP", 0, false, false, 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:          o.op,
			Name:          o.name,
			MinStack:      o.minStack,
			Grows:         o.grows,
			NonZeroSecond: o.nonZero,
			Delta:         o.delta,
		}
	}
}

// GetInfo returns information about the given instruction. The zero Info is
// returned for symbols outside the alphabet.
func GetInfo(c Code) Info {
	return infos[c]
}

// Valid reports whether c belongs to the alphabet.
func (c Code) Valid() bool {
	return infos[c].Code != Invalid
}

// String returns the instruction symbol.
func (c Code) String() string {
	return string(rune(c))
}

// IsDelta reports whether c is one of the four unary constant-offset
// instructions.
func (c Code) IsDelta() bool {
	return infos[c].Delta != 0
}

// Instruction alphabets by position. First is used at position zero, where
// the stack holds only the start value; Final is used at the last position
// of the buffer.
var (
	First    = []Code{PushZero, Decrement, Duplicate, SubtractFive, Increment, AddFive}
	Interior = []Code{PushZero, Pop, Subtract, Decrement, Modulo, Add, Swap, Multiply, Divide, Duplicate, SubtractFive, Increment, AddFive}
	Final    = []Code{PushZero, Subtract, Decrement, Modulo, Add, Multiply, Divide, Duplicate, SubtractFive, Increment, AddFive}
)

var finals [256]bool

func init() {
	for _, c := range Final {
		finals[c] = true
	}
}

// IsFinal reports whether c is a member of the Final alphabet.
func IsFinal(c Code) bool {
	return finals[c]
}

// Redundant reports whether next should never follow prev because the pair
// is equivalent to a shorter program covered elsewhere.
func Redundant(prev, next Code) bool {
	switch {
	case prev == Swap && next == Swap:
		return true
	case prev == Duplicate && next == Swap:
		return true
	case prev == Increment && next == Decrement, prev == Decrement && next == Increment:
		return true
	case prev == AddFive && next == SubtractFive, prev == SubtractFive && next == AddFive:
		return true
	case next == Pop:
		return IsFinal(prev)
	}
	return false
}

// Parse converts a symbol string into a program.
func Parse(s string) ([]Code, error) {
	program := make([]Code, len(s))
	for i := 0; i < len(s); i++ {
		c := Code(s[i])
		if !c.Valid() {
			return nil, fmt.Errorf("invalid instruction %q at offset %d", s[i], i)
		}
		program[i] = c
	}
	return program, nil
}

// EffectiveLength returns the number of instructions before the first no-op.
func EffectiveLength(program []Code) int {
	for i, c := range program {
		if c == Nop {
			return i
		}
	}
	return len(program)
}

// Format returns the effective program string, i.e. the symbols preceding
// the first no-op.
func Format(program []Code) string {
	n := EffectiveLength(program)
	var sb strings.Builder
	sb.Grow(n)
	for _, c := range program[:n] {
		sb.WriteByte(byte(c))
	}
	return sb.String()
}
