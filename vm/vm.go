// Package vm provides the stack machine that evaluates candidate programs.
package vm

import (
	"math"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
)

const (
	// MaxProgramLength is the longest program the machine accepts. Every
	// instruction grows the stack by at most one element, so the stack
	// never exceeds MaxProgramLength+1 elements.
	MaxProgramLength = 64
	MaxStackDepth    = MaxProgramLength + 1
)

// Transformation is a (start, end) pair witnessed by a program: the value
// the program was started with and the top of the stack after it ran.
type Transformation struct {
	Start float64
	End   float64
}

// NewTransformation returns the Transformation for start and end. Negative
// zero is normalised to positive zero and every NaN to math.NaN().
func NewTransformation(start, end float64) Transformation {
	return Transformation{Start: normalize(start), End: normalize(end)}
}

func normalize(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return math.NaN()
	case f == 0:
		return 0
	}
	return f
}

// IsIdentity reports whether the program left the start value on top.
func (t Transformation) IsIdentity() bool {
	return t.Start == t.End
}

// Machine executes programs against a single starting value. The stack is
// stored with the top as the last element. A Machine is not safe for
// concurrent use; run one per goroutine.
type Machine struct {
	sp       int // stack pointer
	stack    [MaxStackDepth]float64
	observer Observer
}

// New creates a new Machine.
func New(options ...Option) *Machine {
	m := &Machine{sp: -1}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Execute runs program with the stack initialised to [start]. It returns
// ok=false as soon as an instruction's precondition is violated, or if the
// stack is empty once the program finishes. An error is returned only for a
// symbol outside the alphabet or a program longer than MaxProgramLength.
func (m *Machine) Execute(program []op.Code, start float64) (Transformation, bool, error) {
	if len(program) > MaxProgramLength {
		return Transformation{}, false, errz.New(errz.ErrConfig,
			"program length %d exceeds limit of %d", len(program), MaxProgramLength)
	}
	m.sp = 0
	m.stack[0] = start
	for ip, code := range program {
		ok := m.step(code)
		if !ok && !code.Valid() {
			return Transformation{}, false, errz.New(errz.ErrConfig,
				"invalid instruction %q", code.String()).AtOffset(symbols(program), ip)
		}
		if m.observer != nil {
			if !m.observer.OnStep(m.event(ip, code, ok)) {
				return Transformation{}, false, nil
			}
		}
		if !ok {
			return Transformation{}, false, nil
		}
	}
	if m.sp < 0 {
		return Transformation{}, false, nil
	}
	return NewTransformation(start, m.stack[m.sp]), true, nil
}

// step applies one instruction, reporting false if its precondition does
// not hold or the symbol is unknown.
func (m *Machine) step(code op.Code) bool {
	switch code {
	case op.PushZero:
		m.push(0)
	case op.Pop:
		if m.sp < 0 {
			return false
		}
		m.sp--
	case op.Subtract:
		if m.sp < 1 {
			return false
		}
		m.push(m.stack[m.sp] - m.stack[m.sp-1])
	case op.Modulo:
		if m.sp < 1 || m.stack[m.sp-1] == 0 {
			return false
		}
		m.push(math.Mod(m.stack[m.sp], m.stack[m.sp-1]))
	case op.Add:
		if m.sp < 1 {
			return false
		}
		m.push(m.stack[m.sp] + m.stack[m.sp-1])
	case op.Multiply:
		if m.sp < 1 {
			return false
		}
		m.push(m.stack[m.sp] * m.stack[m.sp-1])
	case op.Divide:
		if m.sp < 1 || m.stack[m.sp-1] == 0 {
			return false
		}
		m.push(m.stack[m.sp] / m.stack[m.sp-1])
	case op.Decrement:
		if m.sp < 0 {
			return false
		}
		m.stack[m.sp]--
	case op.Increment:
		if m.sp < 0 {
			return false
		}
		m.stack[m.sp]++
	case op.AddFive:
		if m.sp < 0 {
			return false
		}
		m.stack[m.sp] += 5
	case op.SubtractFive:
		if m.sp < 0 {
			return false
		}
		m.stack[m.sp] -= 5
	case op.Swap:
		if m.sp < 1 {
			return false
		}
		m.stack[m.sp], m.stack[m.sp-1] = m.stack[m.sp-1], m.stack[m.sp]
	case op.Duplicate:
		if m.sp < 0 {
			return false
		}
		m.push(m.stack[m.sp])
	case op.Nop:
	default:
		return false
	}
	return true
}

func symbols(program []op.Code) string {
	b := make([]byte, len(program))
	for i, c := range program {
		b[i] = byte(c)
	}
	return string(b)
}

func (m *Machine) push(v float64) {
	m.sp++
	m.stack[m.sp] = v
}

// TOS returns the top of the stack left by the last execution.
func (m *Machine) TOS() (float64, bool) {
	if m.sp >= 0 {
		return m.stack[m.sp], true
	}
	return 0, false
}

// Depth returns the number of elements on the stack.
func (m *Machine) Depth() int {
	return m.sp + 1
}

// Stack returns a copy of the stack, most recent element first.
func (m *Machine) Stack() []float64 {
	out := make([]float64, 0, m.sp+1)
	for i := m.sp; i >= 0; i-- {
		out = append(out, m.stack[i])
	}
	return out
}

func (m *Machine) event(ip int, code op.Code, ok bool) StepEvent {
	ev := StepEvent{
		Offset:     ip,
		Opcode:     code,
		OpcodeName: op.GetInfo(code).Name,
		StackDepth: m.sp + 1,
		Rejected:   !ok,
	}
	if ok && m.sp >= 0 {
		ev.Top = m.stack[m.sp]
		ev.HasTop = true
	}
	return ev
}
