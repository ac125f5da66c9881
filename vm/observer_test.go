package vm

import (
	"testing"

	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/stretchr/testify/require"
)

// TestObserver is a test observer that records events.
type TestObserver struct {
	NoOpObserver
	Steps  []StepEvent
	HaltAt int
}

func (o *TestObserver) OnStep(event StepEvent) bool {
	o.Steps = append(o.Steps, event)
	return o.HaltAt == 0 || len(o.Steps) < o.HaltAt
}

func TestObserverOnStep(t *testing.T) {
	observer := &TestObserver{}
	m := New(WithObserver(observer))
	result, ok, err := m.Execute(program(t, "AVG"), 2)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 7.0, result.End)

	require.Len(t, observer.Steps, 3)
	for i, step := range observer.Steps {
		require.Equal(t, i, step.Offset)
		require.NotEmpty(t, step.OpcodeName)
		require.False(t, step.Rejected)
		require.True(t, step.HasTop)
	}
	require.Equal(t, op.Add, observer.Steps[2].Opcode)
	require.Equal(t, 3, observer.Steps[2].StackDepth)
	require.Equal(t, 7.0, observer.Steps[2].Top)
}

func TestObserverRejectedStep(t *testing.T) {
	observer := &TestObserver{}
	_, ok, err := Execute(program(t, "AQPI"), 2, WithObserver(observer))
	require.Nil(t, err)
	require.False(t, ok)
	require.Len(t, observer.Steps, 3)
	last := observer.Steps[2]
	require.True(t, last.Rejected)
	require.False(t, last.HasTop)
	require.Equal(t, "DIVIDE_PUSH", last.OpcodeName)
}

func TestObserverHalt(t *testing.T) {
	observer := &TestObserver{HaltAt: 1}
	_, ok, err := Execute(program(t, "AI"), 2, WithObserver(observer))
	require.Nil(t, err)
	require.False(t, ok)
	require.Len(t, observer.Steps, 1)
}
