// Package shortprog discovers, for every value reachable from a start value,
// the shortest program in a small stack language that produces it.
//
// Most callers only need Search and Encode:
//
//	res, err := shortprog.Search(ctx, 65, 6, search.WithWorkers(6))
//	if err != nil {
//		return err
//	}
//	data, err := shortprog.Encode(res, tablefmt.JSON)
package shortprog

import (
	"context"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/deepnoodle-ai/shortprog/search"
	"github.com/deepnoodle-ai/shortprog/tablefmt"
	"github.com/deepnoodle-ai/shortprog/vm"
)

// Execute parses a program string and runs it against start. ok is false
// when the program is rejected by the machine.
func Execute(program string, start float64) (result vm.Transformation, ok bool, err error) {
	code, err := op.Parse(program)
	if err != nil {
		return vm.Transformation{}, false, errz.Wrap(errz.ErrConfig, err, "parsing program")
	}
	return vm.Execute(code, start)
}

// Search runs an exhaustive search; see search.Search.
func Search(ctx context.Context, start float64, length int, opts ...search.Option) (*search.Result, error) {
	return search.Search(ctx, start, length, opts...)
}

// Encode serializes the table of a search result.
func Encode(res *search.Result, f tablefmt.Format, opts ...tablefmt.Option) ([]byte, error) {
	nested, err := tablefmt.Group(res.Table.Entries(), opts...)
	if err != nil {
		return nil, err
	}
	return tablefmt.Marshal(f, nested)
}
