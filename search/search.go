// Package search enumerates every program up to a fixed length, evaluates
// each one on the stack machine and records the shortest witness for every
// transformation it discovers.
//
// The enumeration fills a buffer position by position. Three rules keep it
// tractable:
//
//   - Every prefix is evaluated with the remaining positions set to no-ops,
//     which covers all shorter programs without a separate loop over
//     lengths.
//   - Pairs of adjacent instructions that are equivalent to a shorter
//     program (see op.Redundant) are never generated.
//   - A prefix whose evaluation fails is not extended, since the machine
//     fails the same way for every completion.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/deepnoodle-ai/shortprog/vm"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
)

// Stats counts the work done by a search.
type Stats struct {
	// Executed is the number of candidates evaluated and offered to the
	// table.
	Executed uint64
	// Pruned is the number of failing prefixes whose subtrees were skipped.
	Pruned uint64
	// Skipped is the number of redundant instruction pairs not generated.
	Skipped uint64
}

func (s *Stats) add(other Stats) {
	s.Executed += other.Executed
	s.Pruned += other.Pruned
	s.Skipped += other.Skipped
}

// Result is the outcome of a search.
type Result struct {
	RunID      uuid.UUID
	Start      float64
	Length     int
	Table      *table.Table
	Stats      Stats
	Curated    bool
	Curation   table.Report
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the search.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Search evaluates every program of at most length instructions against
// start and returns the table of shortest witnesses, curated unless
// WithoutCuration is given. The search itself never fails; an error means
// invalid input, a corrupted instruction table or a cancelled context.
func Search(ctx context.Context, start float64, length int, opts ...Option) (*Result, error) {
	o := collectOptions(opts...)
	if length < 1 {
		return nil, errz.New(errz.ErrUsage, "invalid instruction count: %d", length)
	}
	if length > vm.MaxProgramLength {
		return nil, errz.New(errz.ErrUsage, "instruction count %d exceeds limit of %d",
			length, vm.MaxProgramLength)
	}
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, errz.Wrap(errz.ErrInternal, err, "generating run id")
	}
	res := &Result{
		RunID:     runID,
		Start:     start,
		Length:    length,
		StartedAt: time.Now(),
	}
	logger := o.logger.With().Str("run_id", runID.String()).Logger()
	total := EstimateTotal(length)
	logger.Info().
		Float64("start", start).
		Int("length", length).
		Int("workers", o.workers).
		Uint64("estimated_total", total).
		Msg("search started")

	rep := newReporter(o.observer, Progress{RunID: runID, Total: total})
	tables, stats, err := runPartitions(ctx, start, length, o, rep)
	if err != nil {
		logger.Error().Err(err).Msg("search failed")
		return nil, err
	}
	rep.done()

	res.Table = table.New(o.tie)
	for _, t := range tables {
		res.Table.Merge(t)
	}
	res.Stats = stats
	discovered := res.Table.Len()
	if o.curate {
		res.Curation = res.Table.Curate(o.policy)
		res.Curated = true
	}
	res.FinishedAt = time.Now()

	logger.Info().
		Uint64("executed", stats.Executed).
		Uint64("pruned", stats.Pruned).
		Uint64("skipped", stats.Skipped).
		Int("discovered", discovered).
		Int("entries", res.Table.Len()).
		Dur("duration", res.Duration()).
		Msg("search finished")
	return res, nil
}

// runPartitions explores the subtree of every first-position symbol. Each
// partition gets its own machine, buffer and table; the tables are returned
// in op.First order so that merging them reproduces a sequential run.
func runPartitions(parent context.Context, start float64, length int, o *options, rep *reporter) ([]*table.Table, Stats, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	n := len(op.First)
	tables := make([]*table.Table, n)
	stats := make([]Stats, n)
	errs := make([]error, n)

	jobs := make(chan int, n)
	for i := range op.First {
		jobs <- i
	}
	close(jobs)

	workers := min(o.workers, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				e := &enumerator{
					ctx:      ctx,
					start:    start,
					buffer:   make([]op.Code, length),
					machine:  vm.New(),
					table:    table.New(o.tie),
					interval: o.checkInterval,
					reporter: rep,
				}
				errs[i] = e.run(op.First[i])
				tables[i] = e.table
				stats[i] = e.stats
				o.logger.Debug().
					Str("first", op.First[i].String()).
					Uint64("executed", e.stats.Executed).
					Int("entries", e.table.Len()).
					Msg("partition finished")
				if errs[i] != nil {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	var total Stats
	for _, s := range stats {
		total.add(s)
	}
	if err := parent.Err(); err != nil {
		return nil, total, err
	}
	var result *multierror.Error
	for _, err := range errs {
		if err == nil {
			continue
		}
		// Partitions stopped by a sibling's failure only add noise.
		if errors.Is(err, context.Canceled) && parent.Err() == nil {
			continue
		}
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		if len(result.Errors) == 1 {
			return nil, total, result.Errors[0]
		}
		return nil, total, err
	}
	return tables, total, nil
}

// enumerator walks the program tree below a single first-position symbol.
type enumerator struct {
	ctx      context.Context
	start    float64
	buffer   []op.Code
	machine  *vm.Machine
	table    *table.Table
	stats    Stats
	interval uint64
	pending  uint64
	reporter *reporter
}

func (e *enumerator) run(first op.Code) error {
	for i := range e.buffer {
		e.buffer[i] = op.Nop
	}
	e.buffer[0] = first
	ok, err := e.try()
	if err == nil && !ok {
		if len(e.buffer) == 1 {
			err = errz.New(errz.ErrInternal,
				"first instruction %q produced no result", first.String())
		} else {
			e.stats.Pruned++
		}
	}
	if err == nil && ok && len(e.buffer) > 1 {
		err = e.extend(1)
	}
	e.reporter.add(e.pending)
	e.pending = 0
	return err
}

// extend enumerates every program that continues the first pos positions
// of the buffer. buffer[pos:] holds no-ops on entry and again on return.
//
// Each candidate written at pos is evaluated once with the rest of the
// buffer still no-op padded. That evaluation is both the table entry for
// the shorter program and the failure check for the subtree below it.
func (e *enumerator) extend(pos int) error {
	last := pos == len(e.buffer)-1
	alphabet := op.Interior
	if last {
		alphabet = op.Final
	}
	prev := e.buffer[pos-1]
	for _, code := range alphabet {
		if op.Redundant(prev, code) {
			e.stats.Skipped++
			continue
		}
		e.buffer[pos] = code
		ok, err := e.try()
		if err != nil {
			return err
		}
		if last {
			continue
		}
		if !ok {
			e.stats.Pruned++
			continue
		}
		if err := e.extend(pos + 1); err != nil {
			return err
		}
	}
	e.buffer[pos] = op.Nop
	return nil
}

// try evaluates the buffer and offers the result to the table.
func (e *enumerator) try() (bool, error) {
	e.stats.Executed++
	e.pending++
	if e.pending == e.interval {
		if err := e.ctx.Err(); err != nil {
			return false, err
		}
		e.reporter.add(e.pending)
		e.pending = 0
	}
	tr, ok, err := e.machine.Execute(e.buffer, e.start)
	if err != nil || !ok {
		return false, err
	}
	if e.table.Accepts(tr, op.EffectiveLength(e.buffer)) {
		e.table.Update(tr, op.Format(e.buffer))
	}
	return true, nil
}
