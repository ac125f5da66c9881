package vm

import "github.com/deepnoodle-ai/shortprog/op"

// Execute runs program against start on a new Machine.
func Execute(program []op.Code, start float64, options ...Option) (Transformation, bool, error) {
	return New(options...).Execute(program, start)
}
