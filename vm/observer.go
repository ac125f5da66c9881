package vm

import "github.com/deepnoodle-ai/shortprog/op"

// Observer receives execution events from a Machine. It enables tracing and
// debugging tools without modifying the machine.
type Observer interface {
	// OnStep is called after each instruction. Returns false to halt
	// execution immediately; the execution then reports no result.
	OnStep(event StepEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// Offset is the index of the instruction in the program.
	Offset int

	// Opcode is the instruction that was executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the instruction.
	OpcodeName string

	// StackDepth is the depth of the stack after the instruction.
	StackDepth int

	// Top is the top of the stack after the instruction, valid when HasTop.
	Top    float64
	HasTop bool

	// Rejected is set when the instruction's precondition failed. It is the
	// last event of the execution.
	Rejected bool
}

// NoOpObserver is an Observer implementation that does nothing.
type NoOpObserver struct{}

func (NoOpObserver) OnStep(StepEvent) bool { return true }

// Ensure NoOpObserver implements Observer.
var _ Observer = NoOpObserver{}
