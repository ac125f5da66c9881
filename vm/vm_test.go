package vm

import (
	"math"
	"testing"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/stretchr/testify/require"
)

func program(t *testing.T, s string) []op.Code {
	t.Helper()
	p, err := op.Parse(s)
	require.Nil(t, err)
	return p
}

func TestPushZero(t *testing.T) {
	result, ok, err := Execute(program(t, "A"), 5)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, Transformation{Start: 5, End: 0}, result)
}

func TestDuplicateIsIdentity(t *testing.T) {
	result, ok, err := Execute(program(t, "Q"), 7)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, Transformation{Start: 7, End: 7}, result)
	require.True(t, result.IsIdentity())
}

func TestIncrement(t *testing.T) {
	result, ok, err := Execute(program(t, "I"), 3)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, Transformation{Start: 3, End: 4}, result)
}

func TestInstructions(t *testing.T) {
	tests := []struct {
		name    string
		program string
		start   float64
		end     float64
		ok      bool
	}{
		{"decrement", "D", 10, 9, true},
		{"add five", "V", 10, 15, true},
		{"subtract five", "W", 10, 5, true},
		{"subtract push uses top minus second", "AC", 10, -10, true},
		{"subtract push after swap", "ALC", 10, 10, true},
		{"add push", "QG", 6, 12, true},
		{"multiply push", "QM", 6, 36, true},
		{"divide push", "QIP", 6, 7.0 / 6, true},
		{"modulo push", "QVE", 6, 5, true},
		{"modulo keeps dividend sign", "AWE", 3, -2, true},
		{"swap", "AL", 10, 10, true},
		{"pop", "AB", 10, 10, true},
		{"pop to empty", "B", 10, 0, false},
		{"push onto emptied stack", "ABBA", 10, 0, true},
		{"push after emptying", "AB~", 10, 10, true},
		{"nop", "~~~", 4, 4, true},
		{"binary op underflow", "G", 4, 0, false},
		{"swap underflow", "L", 4, 0, false},
		{"unary underflow", "ABBI", 4, 0, false},
		{"divide by zero", "AQP", 4, 0, false},
		{"modulo by zero", "AQE", 4, 0, false},
		{"divide by zero second only", "AP", 4, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok, err := Execute(program(t, tt.program), tt.start)
			require.Nil(t, err)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.InDelta(t, tt.end, result.End, 1e-12)
				require.Equal(t, tt.start, result.Start)
			}
		})
	}
}

func TestBinaryOpsKeepOperands(t *testing.T) {
	m := New()
	_, ok, err := m.Execute(program(t, "AVG"), 2)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{7, 5, 2}, m.Stack())
	require.Equal(t, 3, m.Depth())
	tos, ok := m.TOS()
	require.True(t, ok)
	require.Equal(t, 7.0, tos)
}

func TestEmptyFinalStack(t *testing.T) {
	m := New()
	_, ok, err := m.Execute([]op.Code{op.PushZero, op.Pop, op.Pop, op.Nop}, 1)
	require.Nil(t, err)
	require.False(t, ok)
	_, ok = m.TOS()
	require.False(t, ok)
}

func TestInvalidInstruction(t *testing.T) {
	_, ok, err := Execute([]op.Code{op.PushZero, op.Code('Z')}, 1)
	require.False(t, ok)
	require.NotNil(t, err)
	require.True(t, errz.Is(err, errz.ErrConfig))
	require.Contains(t, err.Error(), "offset 1")
}

func TestInvalidInstructionAfterRejection(t *testing.T) {
	// Execution aborts at the underflow and never reaches the bad symbol.
	_, ok, err := Execute([]op.Code{op.Add, op.Code('Z')}, 1)
	require.Nil(t, err)
	require.False(t, ok)
}

func TestProgramTooLong(t *testing.T) {
	long := make([]op.Code, MaxProgramLength+1)
	for i := range long {
		long[i] = op.Nop
	}
	_, _, err := Execute(long, 1)
	require.True(t, errz.Is(err, errz.ErrConfig))
}

func TestMaxLengthGrowth(t *testing.T) {
	long := make([]op.Code, MaxProgramLength)
	for i := range long {
		long[i] = op.Duplicate
	}
	m := New()
	_, ok, err := m.Execute(long, 1)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, MaxStackDepth, m.Depth())
}

func TestNegativeZeroNormalised(t *testing.T) {
	// 0 * -5 yields -0.
	result, ok, err := Execute(program(t, "WAM"), 0)
	require.Nil(t, err)
	require.True(t, ok)
	require.False(t, math.Signbit(result.End))
	require.Equal(t, NewTransformation(0, 0), result)
}

func TestNonFiniteResults(t *testing.T) {
	// Inf - Inf
	result, ok, err := Execute(program(t, "QC"), math.Inf(1))
	require.Nil(t, err)
	require.True(t, ok)
	require.True(t, math.IsNaN(result.End))
	require.Equal(t, math.Float64bits(math.NaN()), math.Float64bits(result.End))

	// 1e200 * 1e200 overflows.
	result, ok, err = Execute(program(t, "QM"), 1e200)
	require.Nil(t, err)
	require.True(t, ok)
	require.True(t, math.IsInf(result.End, 1))

	tr := NewTransformation(1, math.Float64frombits(0x7ff8000000000001))
	require.Equal(t, math.Float64bits(math.NaN()), math.Float64bits(tr.End))
}

func TestMachineReuse(t *testing.T) {
	m := New()
	first, ok, err := m.Execute(program(t, "QQQG"), 2)
	require.Nil(t, err)
	require.True(t, ok)
	second, ok, err := m.Execute(program(t, "I"), 2)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 4.0, first.End)
	require.Equal(t, 3.0, second.End)
	require.Equal(t, 1, m.Depth())
}

// allPrograms returns every program of the given length over the interior
// alphabet.
func allPrograms(length int) [][]op.Code {
	if length == 0 {
		return [][]op.Code{{}}
	}
	var out [][]op.Code
	for _, prefix := range allPrograms(length - 1) {
		for _, c := range op.Interior {
			p := append(append([]op.Code{}, prefix...), c)
			out = append(out, p)
		}
	}
	return out
}

func TestDeterminism(t *testing.T) {
	m := New()
	for _, p := range allPrograms(3) {
		for _, start := range []float64{-3, 0, 1, 42} {
			r1, ok1, err1 := m.Execute(p, start)
			r2, ok2, err2 := Execute(p, start)
			require.Nil(t, err1)
			require.Nil(t, err2)
			require.Equal(t, ok1, ok2)
			require.Equal(t, r1, r2)
		}
	}
}

func TestMonotonicFailure(t *testing.T) {
	const total = 4
	m := New()
	for _, prefix := range allPrograms(2) {
		observer := &TestObserver{}
		padded := append(append([]op.Code{}, prefix...), op.Nop, op.Nop)
		_, ok, err := Execute(padded, 0, WithObserver(observer))
		require.Nil(t, err)
		if ok {
			continue
		}
		// An emptied stack is not an abort: a later push recovers it.
		if last := observer.Steps[len(observer.Steps)-1]; !last.Rejected {
			continue
		}
		for _, suffix := range allPrograms(total - len(prefix)) {
			full := append(append([]op.Code{}, prefix...), suffix...)
			_, ok, err := m.Execute(full, 0)
			require.Nil(t, err)
			require.False(t, ok, "program %s", op.Format(full))
		}
	}
}
